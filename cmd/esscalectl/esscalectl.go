package main

import (
	"context"
	"fmt"
	"github.com/coopernurse/esscale/pkg/common"
	"github.com/coopernurse/esscale/pkg/config"
	"github.com/coopernurse/esscale/pkg/esdomain"
	"github.com/coopernurse/esscale/pkg/index"
	"github.com/coopernurse/esscale/pkg/invoke"
	"github.com/coopernurse/esscale/pkg/scaler"
	"github.com/docopt/docopt-go"
	"github.com/dustin/go-humanize"
	"os"
	"strconv"
	"strings"
)

func scale(args docopt.Opts, cfg config.Config) {
	checkErr(cfg.Validate(), "Invalid config")
	inv := invoke.NewInvoker(newScaler(cfg))

	req := invoke.ScaleRequest{}
	if t := argStr(args, "--type"); t != "" {
		req = invoke.NewScaleRequest(t)
	}
	msg, err := inv.Invoke(context.Background(), req)
	checkErr(err, "Scale failed")
	fmt.Println(msg)
}

func plan(args docopt.Opts, cfg config.Config) {
	current, err := strconv.ParseInt(argStr(args, "<instanceCount>"), 10, 64)
	checkErr(err, "Invalid instance count")
	scaleType := scaler.ScaleType(argStr(args, "<scaleType>"))
	if !scaleType.Valid() {
		fmt.Printf("ERROR: invalid scale type: %s\n", scaleType)
		os.Exit(1)
	}

	limits := limitsFromConfig(cfg)
	p := limits.ComputeScalePlan(current, scaleType)
	fmt.Printf("%-12s  %-10s  %-10s  %-10s\n", "Scale Type", "Current", "Instances", "Replicas")
	fmt.Printf("--------------------------------------------------\n")
	fmt.Printf("%-12s  %-10d  %-10d  %-10d\n", scaleType, current, p.NewInstanceCount, p.NewReplicasCount)
	if scaleType == scaler.ScaleTypeDown && current <= limits.MinInstanceCount {
		fmt.Printf("\nNote: scale down is refused at or below %d instances\n", limits.MinInstanceCount)
	}
}

func describe(cfg config.Config) {
	checkErr(cfg.Validate(), "Invalid config")
	sess, err := esdomain.NewAwsSession(cfg.Region)
	checkErr(err, "Unable to create AWS session")
	dc, err := esdomain.NewProvider(sess).DescribeDomainConfig(context.Background(), cfg.DomainName)
	checkErr(err, "DescribeDomainConfig failed for: "+cfg.DomainName)

	cc := dc.ClusterConfig
	fmt.Printf("Domain:          %s\n", cfg.DomainName)
	fmt.Printf("Version:         %s (%s)\n", dc.ElasticsearchVersion, dc.VersionState)
	fmt.Printf("Instances:       %d x %s\n", cc.InstanceCount, cc.InstanceType)
	if cc.DedicatedMasterEnabled {
		fmt.Printf("Masters:         %d x %s\n", cc.DedicatedMasterCount, cc.DedicatedMasterType)
	}
	if cc.WarmEnabled {
		fmt.Printf("Warm nodes:      %d x %s\n", cc.WarmCount, cc.WarmType)
	}
	if dc.EbsOptions.EbsEnabled {
		fmt.Printf("EBS:             %s %s per node\n", dc.EbsOptions.VolumeType,
			humanize.IBytes(uint64(dc.EbsOptions.VolumeSize)*humanize.GiByte))
	} else {
		fmt.Printf("EBS:             disabled\n")
	}
	if dc.VpcOptions.Empty() {
		fmt.Printf("VPC:             none\n")
	} else {
		fmt.Printf("VPC:             %s subnets=%s securityGroups=%s\n", dc.VpcOptions.VpcId,
			strings.Join(dc.VpcOptions.SubnetIds, ","), strings.Join(dc.VpcOptions.SecurityGroupIds, ","))
	}
}

func replicas(args docopt.Opts, cfg config.Config) {
	alias := argStr(args, "<indexAlias>")
	count, err := strconv.ParseInt(argStr(args, "<count>"), 10, 64)
	checkErr(err, "Invalid replica count")
	if count < 0 {
		fmt.Printf("ERROR: replica count must be >= 0\n")
		os.Exit(1)
	}

	client, err := common.NewHTTPClientWithSettings(cfg.IndexClient.Settings())
	checkErr(err, "Unable to create HTTP client")
	err = index.NewReplicasUpdater(client, cfg.Uri).ChangeReplicas(context.Background(), alias, count)
	checkErr(err, "ChangeReplicas failed")
	fmt.Printf("Success  index: %s replicas set to: %d\n", alias, count)
}

////////////////////////////////////

func newScaler(cfg config.Config) *scaler.Scaler {
	sess, err := esdomain.NewAwsSession(cfg.Region)
	checkErr(err, "Unable to create AWS session")
	return scaler.NewScaler(scaler.Config{
		DomainName: cfg.DomainName,
		Limits:     limitsFromConfig(cfg),
	}, esdomain.NewProvider(sess))
}

func limitsFromConfig(cfg config.Config) scaler.Limits {
	return scaler.Limits{
		MinInstanceCount: cfg.MinInstanceCount,
		MaxInstanceCount: cfg.MaxInstanceCount,
		MinReplicasCount: cfg.MinReplicasCount,
	}
}

func loadConfig(args docopt.Opts) config.Config {
	var cfg config.Config
	var err error
	envFile := argStr(args, "--env")
	if envFile == "" {
		cfg, err = config.FromEnv()
	} else {
		cfg, err = config.FromEnvFile(envFile)
	}
	checkErr(err, "Unable to load config")
	return cfg
}

func argBool(args docopt.Opts, key string) bool {
	b, _ := args.Bool(key)
	return b
}

func argStr(args docopt.Opts, key string) string {
	s, _ := args.String(key)
	return s
}

func checkErr(err error, msg string) {
	if err != nil {
		fmt.Printf("ERROR: %s - %v\n", msg, err)
		os.Exit(1)
	}
}

func main() {
	usage := `esscalectl - Elasticsearch domain scaling tool

Usage:
  esscalectl scale [--type=<scaleType>] [--env=<file>]
  esscalectl plan <instanceCount> <scaleType> [--env=<file>]
  esscalectl describe [--env=<file>]
  esscalectl replicas <indexAlias> <count> [--env=<file>]

Options:
  --type=<scaleType>  scale_up or scale_down, scale_up when omitted
  --env=<file>        Load ES_* settings from this env file before reading the environment
`
	args, err := docopt.ParseDoc(usage)
	if err != nil {
		fmt.Printf("ERROR parsing arguments: %v\n", err)
		os.Exit(1)
	}

	cfg := loadConfig(args)

	if argBool(args, "scale") {
		scale(args, cfg)
	} else if argBool(args, "plan") {
		plan(args, cfg)
	} else if argBool(args, "describe") {
		describe(cfg)
	} else if argBool(args, "replicas") {
		replicas(args, cfg)
	} else {
		fmt.Printf("ERROR: unsupported command. args=%v\n", args)
		os.Exit(2)
	}
}
