package config

import (
	"log"
	"os"
	"time"

	"github.com/The-Hawkeye/go-ecommerce/pkg/utils"
	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env         string      `yaml:"env" env:"ENV" env-default:"local"`
	HTTP        HTTP        `yaml:"http"`
	Postgres    PG          `yaml:"postgres"`
	Redis       Redis       `yaml:"redis"`
	Kafka       Kafka       `yaml:"kafka"`
	Services    Services    `yaml:"services"`
	Checkout    Checkout    `yaml:"checkout"`
	Reservation Reservation `yaml:"reservation"`
}

type HTTP struct {
	Port    string        `yaml:"port" env:"HTTP_PORT" env-default:":3000"`
	Timeout time.Duration `yaml:"timeout" env-default:"4s"`
}

type PG struct {
	URL string `yaml:"url" env:"DB_URL"`
}

type Redis struct {
	Addr string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
}

type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	GroupID string   `yaml:"group_id" env:"KAFKA_GROUP_ID" env-default:"order-fulfillment-group"`
}

type Services struct {
	ProductBaseURL string        `yaml:"product_base_url" env:"PRODUCT_BASE_URL" env-default:"http://localhost:8082"`
	UserBaseURL    string        `yaml:"user_base_url" env:"USER_BASE_URL" env-default:"http://localhost:8081"`
	CallTimeout    time.Duration `yaml:"call_timeout" env-default:"3s"`
}

// Checkout carries the pricing policy; the amounts are minor currency units
// and the tax rate is expressed in basis points (1800 = 18%).
type Checkout struct {
	TaxRateBasisPoints int64 `yaml:"tax_rate_basis_points" env:"TAX_RATE_BP" env-default:"1800"`
	ShippingFee        int64 `yaml:"shipping_fee" env:"SHIPPING_FEE" env-default:"4900"`
	Discount           int64 `yaml:"discount" env:"DISCOUNT" env-default:"0"`
}

type Reservation struct {
	PendingTimeout time.Duration `yaml:"pending_timeout" env:"RESERVATION_PENDING_TIMEOUT" env-default:"2m"`
	SweepInterval  time.Duration `yaml:"sweep_interval" env:"RESERVATION_SWEEP_INTERVAL" env-default:"1m"`
	SweepBatchSize int           `yaml:"sweep_batch_size" env-default:"100"`
}

func MustLoad() *Config {
	configPath := utils.ParseWithFallback("CONFIG_PATH", "./config/local.yaml")

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exists: %v\n", err)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("error reading config: %v", err)
	}

	return &cfg
}
