package config

import (
	"bufio"
	"fmt"
	"github.com/coopernurse/esscale/pkg/common"
	"github.com/kelseyhightower/envconfig"
	"io"
	"os"
	"strings"
	"time"
)

const envPrefix = "es"

func FileToEnv(fname string) (err error) {
	file, err := os.Open(fname)
	if err != nil {
		return fmt.Errorf("config: error opening env file: %s - %v", fname, err)
	}
	defer common.CheckClose(file, &err)
	err = ReaderToEnv(file)
	if err != nil {
		return fmt.Errorf("config: error reading env file: %s - %v", fname, err)
	}
	return nil
}

// ReaderToEnv sets an env var for each KEY=VAL line in r. Blank lines and
// lines starting with # are ignored.
func ReaderToEnv(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		pos := strings.Index(line, "=")
		if pos > 0 && !strings.HasPrefix(line, "#") {
			key := strings.TrimSpace(line[0:pos])
			val := strings.TrimSpace(line[pos+1:])
			if key != "" {
				err := os.Setenv(key, val)
				if err != nil {
					return fmt.Errorf("config: unable to set env var: %s - %v", key, err)
				}
			}
		}
	}
	return scanner.Err()
}

func FromEnvFile(fname string) (Config, error) {
	err := FileToEnv(fname)
	if err != nil {
		return Config{}, err
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	var c Config
	err := envconfig.Process(envPrefix, &c)
	if err != nil {
		return Config{}, err
	}
	return c, nil
}

type Config struct {
	// AWS region of the domain
	Region string
	// Name of the Elasticsearch domain to scale
	DomainName string `split_words:"true"`
	// Base URI of the domain endpoint, used for index settings calls
	Uri string

	// Scaling bounds
	MinInstanceCount int64 `split_words:"true" default:"3"`
	MaxInstanceCount int64 `split_words:"true" default:"6"`
	MinReplicasCount int64 `split_words:"true" default:"1"`

	// Port for the scale HTTP endpoint. 0 disables it.
	HttpPort int `split_words:"true" default:"8380"`
	// If set, poll this SQS queue for scale requests
	SqsQueueName string `split_words:"true"`
	// Visibility timeout (seconds) for received SQS messages
	SqsVisibilityTimeout int64 `split_words:"true" default:"300"`
	// If set, load cron scale rules from this YAML file
	ScheduleFile string `split_words:"true"`

	IndexClient HTTPClientOptions `split_words:"true"`
}

type HTTPClientOptions struct {
	ConnectTimeout        time.Duration `split_words:"true" default:"5s"`
	ConnKeepAlive         time.Duration `split_words:"true" default:"30s"`
	IdleConnTimeout       time.Duration `split_words:"true" default:"90s"`
	MaxIdleConns          int           `split_words:"true" default:"4"`
	TLSHandshakeTimeout   time.Duration `envconfig:"TLS_HANDSHAKE_TIMEOUT" default:"10s"`
	ResponseHeaderTimeout time.Duration `split_words:"true"`
}

func (o HTTPClientOptions) Settings() common.HTTPClientSettings {
	return common.HTTPClientSettings{
		ConnectTimeout:        o.ConnectTimeout,
		ConnKeepAlive:         o.ConnKeepAlive,
		ExpectContinue:        time.Second,
		IdleConnTimeout:       o.IdleConnTimeout,
		MaxAllIdleConns:       o.MaxIdleConns,
		MaxHostIdleConns:      o.MaxIdleConns,
		ResponseHeaderTimeout: o.ResponseHeaderTimeout,
		TLSHandshakeTimeout:   o.TLSHandshakeTimeout,
	}
}

// Validate checks the fields every entry point needs.
func (c Config) Validate() error {
	if strings.TrimSpace(c.DomainName) == "" {
		return fmt.Errorf("config: ES_DOMAIN_NAME is required")
	}
	if c.MinInstanceCount < 1 {
		return fmt.Errorf("config: ES_MIN_INSTANCE_COUNT must be >= 1, got %d", c.MinInstanceCount)
	}
	if c.MaxInstanceCount < c.MinInstanceCount {
		return fmt.Errorf("config: ES_MAX_INSTANCE_COUNT %d is less than ES_MIN_INSTANCE_COUNT %d",
			c.MaxInstanceCount, c.MinInstanceCount)
	}
	if c.MinReplicasCount < 0 {
		return fmt.Errorf("config: ES_MIN_REPLICAS_COUNT must be >= 0, got %d", c.MinReplicasCount)
	}
	return nil
}
