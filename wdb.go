package paygate

import (
	"os"
	"path"

	"github.com/tachi-labs/paygate/schema"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const sqliteName = "paygate.sqlite"

// Wdb is the audit database for background ledger writes.
type Wdb struct {
	Db *gorm.DB
}

func NewMysqlDb(dsn string) (*Wdb, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger:          logger.Default.LogMode(logger.Error),
		CreateBatchSize: 200,
	})
	if err != nil {
		return nil, err
	}
	log.Info("connect mysql db success")
	return &Wdb{Db: db}, nil
}

func NewSqliteDb(dir string) (*Wdb, error) {
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(path.Join(dir, sqliteName)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}
	log.Info("connect sqlite db success", "dir", dir)
	return &Wdb{Db: db}, nil
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.CrawlLogRecord{})
}

func (w *Wdb) InsertCrawlLog(rec schema.CrawlLogRecord) error {
	return w.Db.Clauses(clause.OnConflict{DoNothing: true}).Create(&rec).Error
}

func (w *Wdb) GetCrawlLogs(crawler string, limit int) ([]schema.CrawlLogRecord, error) {
	res := make([]schema.CrawlLogRecord, 0, limit)
	err := w.Db.Where("crawler = ?", crawler).Order("id desc").Limit(limit).Find(&res).Error
	return res, err
}

func (w *Wdb) Close() error {
	sqlDb, err := w.Db.DB()
	if err != nil {
		return err
	}
	return sqlDb.Close()
}
