package config

import (
	"github.com/tachi-labs/paygate/schema"
	"gorm.io/gorm"
)

type Wdb struct {
	Db *gorm.DB
}

func NewWdb(db *gorm.DB) *Wdb {
	return &Wdb{Db: db}
}

func (w *Wdb) Migrate() error {
	return w.Db.AutoMigrate(&schema.RateWhitelist{})
}

func (w *Wdb) GetAllAvailableIpRateWhitelist() ([]schema.RateWhitelist, error) {
	res := make([]schema.RateWhitelist, 0)
	err := w.Db.Where("available = ?", true).Find(&res).Error
	return res, err
}

func (w *Wdb) AddIpRateWhitelist(ip string) error {
	return w.Db.Create(&schema.RateWhitelist{IP: ip, Available: true}).Error
}
