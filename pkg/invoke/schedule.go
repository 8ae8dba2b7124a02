package invoke

import (
	"context"
	"fmt"
	"github.com/coopernurse/esscale/pkg/scaler"
	"github.com/go-yaml/yaml"
	log "github.com/mgutz/logxi/v1"
	"github.com/robfig/cron/v3"
	"io/ioutil"
	"strings"
	"sync"
)

// Schedule is the YAML file format for timed scale requests:
//
//   rules:
//     - name: business-hours
//       schedule: "0 8 * * MON-FRI"
//       scaleType: scale_up
type Schedule struct {
	Rules []ScheduleRule `yaml:"rules"`
}

type ScheduleRule struct {
	Name      string `yaml:"name"`
	Schedule  string `yaml:"schedule"`
	ScaleType string `yaml:"scaleType"`
}

func LoadSchedule(fname string) (Schedule, error) {
	data, err := ioutil.ReadFile(fname)
	if err != nil {
		return Schedule{}, fmt.Errorf("schedule: unable to read file: %s - %v", fname, err)
	}
	return ParseSchedule(data)
}

func ParseSchedule(data []byte) (Schedule, error) {
	var s Schedule
	err := yaml.Unmarshal(data, &s)
	if err != nil {
		return Schedule{}, fmt.Errorf("schedule: unable to parse yaml: %v", err)
	}
	return s, s.Validate()
}

func (s Schedule) Validate() error {
	names := map[string]bool{}
	for i, r := range s.Rules {
		if strings.TrimSpace(r.Name) == "" {
			return fmt.Errorf("schedule: rule %d has no name", i)
		}
		if names[r.Name] {
			return fmt.Errorf("schedule: duplicate rule name: %s", r.Name)
		}
		names[r.Name] = true
		if !scaler.ScaleType(r.ScaleType).Valid() {
			return fmt.Errorf("schedule: rule %s has invalid scaleType: %s", r.Name, r.ScaleType)
		}
	}
	return nil
}

func NewCronService(schedule Schedule, invoker *Invoker, withSeconds bool) (*CronService, error) {
	c := &CronService{
		schedule: schedule,
		invoker:  invoker,
		ctx:      context.Background(),
	}
	if withSeconds {
		c.cron = cron.New(cron.WithSeconds())
	} else {
		c.cron = cron.New()
	}
	for _, rule := range schedule.Rules {
		_, err := c.cron.AddFunc(rule.Schedule, c.createCronInvoker(rule))
		if err != nil {
			return nil, fmt.Errorf("cron: error adding rule: %s schedule: %s - %v", rule.Name, rule.Schedule, err)
		}
	}
	return c, nil
}

type CronService struct {
	schedule Schedule
	invoker  *Invoker
	cron     *cron.Cron
	ctx      context.Context
}

// Run starts the scheduler and blocks until ctx is done. Scale requests that
// are in flight finish before Run returns.
func (c *CronService) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	c.ctx = ctx
	log.Info("cron: starting cron service", "ruleCount", len(c.schedule.Rules))
	c.cron.Start()
	<-ctx.Done()
	<-c.cron.Stop().Done()
	log.Info("cron: shutdown gracefully")
}

func (c *CronService) createCronInvoker(rule ScheduleRule) func() {
	return func() {
		log.Info("cron: invoking scale", "name", rule.Name, "scaleType", rule.ScaleType)
		msg, err := c.invoker.Invoke(c.ctx, NewScaleRequest(rule.ScaleType))
		if err != nil {
			log.Error("cron: scale failed", "name", rule.Name, "err", err)
		} else {
			log.Info("cron: scale done", "name", rule.Name, "result", msg)
		}
	}
}
