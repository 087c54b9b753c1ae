package schema

type Config struct {
	Port           string `yaml:"port"`
	Env            string `yaml:"env"` // production | development
	EnableLogging  bool   `yaml:"enableLogging"`
	MaxRequestSize int64  `yaml:"maxRequestSize"`

	// rate limit, per window
	RateLimit       int    `yaml:"rateLimit"`
	ApiRateLimit    int    `yaml:"apiRateLimit"`
	DeployRateLimit int    `yaml:"deployRateLimit"`
	RateWindow      int    `yaml:"rateWindow"` // seconds
	ClientIpHeader  string `yaml:"clientIpHeader"`

	OriginUrl     string `yaml:"originUrl"`
	OriginTimeout int    `yaml:"originTimeout"` // seconds

	// chain
	RpcUrl             string `yaml:"rpcUrl"`
	RpcTimeout         int    `yaml:"rpcTimeout"` // seconds
	RpcRetries         int    `yaml:"rpcRetries"`
	ChainId            int64  `yaml:"chainId"`
	Network            string `yaml:"network"`
	Currency           string `yaml:"currency"`
	TokenDecimals      int32  `yaml:"tokenDecimals"`
	PaymentToken       string `yaml:"paymentToken"`
	CollectionContract string `yaml:"collectionContract"`
	PublisherAddress   string `yaml:"publisherAddress"`
	LedgerContract     string `yaml:"ledgerContract"`
	SignerKey          string `yaml:"signerKey"`
	CrawlTokenId       string `yaml:"crawlTokenId"`
	Price              string `yaml:"price"`          // human units
	ReuseWindow        int    `yaml:"reuseWindow"`    // seconds
	SkipForwarding     bool   `yaml:"skipForwarding"` // collection contract holds funds instead of forwarding

	ExtraCrawlerPatterns []string `yaml:"extraCrawlerPatterns"`

	// storage
	KVBackend string `yaml:"kvBackend"` // redis | bolt | mongo | memory
	Redis     Redis  `yaml:"redis"`
	BoltDir   string `yaml:"boltDir"`
	MongoUri  string `yaml:"mongoUri"`
	Mysql     string `yaml:"mysql"`
	SqliteDir string `yaml:"sqliteDir"`

	Kafka Kafka `yaml:"kafka"`

	MetricPort    string `yaml:"metricPort"`
	SentryDsn     string `yaml:"sentryDsn"`
	LoggerWorkers int    `yaml:"loggerWorkers"`
	LoggerQueue   int    `yaml:"loggerQueue"`
	LedgerTimeout int    `yaml:"ledgerTimeout"` // seconds
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Kafka struct {
	Start bool   `yaml:"start"`
	Uri   string `yaml:"uri"`
}

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"

	KVRedis  = "redis"
	KVBolt   = "bolt"
	KVMongo  = "mongo"
	KVMemory = "memory"
)
