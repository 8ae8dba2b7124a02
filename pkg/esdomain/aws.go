package esdomain

import (
	"context"
	"fmt"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	es "github.com/aws/aws-sdk-go/service/elasticsearchservice"
	"github.com/aws/aws-sdk-go/service/elasticsearchservice/elasticsearchserviceiface"
	"github.com/coopernurse/esscale/pkg/scaler"
	log "github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
)

func NewAwsSession(region string) (*session.Session, error) {
	cfg := aws.NewConfig()
	if region != "" {
		cfg = cfg.WithRegion(region)
	}
	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "esdomain: unable to create aws session")
	}
	return sess, nil
}

func NewProvider(awsSession *session.Session) *Provider {
	return NewProviderWithClient(es.New(awsSession))
}

func NewProviderWithClient(client elasticsearchserviceiface.ElasticsearchServiceAPI) *Provider {
	return &Provider{client: client}
}

// Provider reads and updates domain config through the Elasticsearch
// Service control plane API.
type Provider struct {
	client elasticsearchserviceiface.ElasticsearchServiceAPI
}

func (p *Provider) DescribeDomainConfig(ctx context.Context, domainName string) (scaler.DomainConfig, error) {
	out, err := p.client.DescribeElasticsearchDomainConfigWithContext(ctx, &es.DescribeElasticsearchDomainConfigInput{
		DomainName: aws.String(domainName),
	})
	if err != nil {
		return scaler.DomainConfig{}, errors.Wrapf(err, "esdomain: describe config failed for: %s", domainName)
	}
	if out.DomainConfig == nil {
		return scaler.DomainConfig{}, fmt.Errorf("esdomain: describe config returned no config for: %s", domainName)
	}
	return toDomainConfig(out.DomainConfig), nil
}

func (p *Provider) UpdateDomainConfig(ctx context.Context,
	input scaler.UpdateDomainConfigInput) (scaler.UpdateDomainConfigOutput, error) {
	if log.IsDebug() {
		log.Debug("esdomain: updating domain config", "domain", input.DomainName, "dryRun", input.DryRun,
			"instanceCount", input.ClusterConfig.InstanceCount)
	}
	out, err := p.client.UpdateElasticsearchDomainConfigWithContext(ctx, toUpdateInput(input))
	if err != nil {
		return scaler.UpdateDomainConfigOutput{}, errors.Wrapf(err, "esdomain: update config failed for: %s",
			input.DomainName)
	}

	result := scaler.UpdateDomainConfigOutput{}
	if out.DryRunResults != nil {
		result.DryRunResult = &scaler.DryRunResult{
			DeploymentType: aws.StringValue(out.DryRunResults.DeploymentType),
			Message:        aws.StringValue(out.DryRunResults.Message),
		}
	}
	if out.DomainConfig != nil && out.DomainConfig.ElasticsearchClusterConfig != nil &&
		out.DomainConfig.ElasticsearchClusterConfig.Status != nil {
		result.ClusterConfigState = aws.StringValue(out.DomainConfig.ElasticsearchClusterConfig.Status.State)
	}
	return result, nil
}

func toDomainConfig(dc *es.ElasticsearchDomainConfig) scaler.DomainConfig {
	out := scaler.DomainConfig{}
	if dc.ElasticsearchVersion != nil {
		out.ElasticsearchVersion = aws.StringValue(dc.ElasticsearchVersion.Options)
		if dc.ElasticsearchVersion.Status != nil {
			out.VersionState = aws.StringValue(dc.ElasticsearchVersion.Status.State)
		}
	}
	if dc.ElasticsearchClusterConfig != nil && dc.ElasticsearchClusterConfig.Options != nil {
		out.ClusterConfig = toClusterConfig(dc.ElasticsearchClusterConfig.Options)
	}
	if dc.EBSOptions != nil && dc.EBSOptions.Options != nil {
		opts := dc.EBSOptions.Options
		out.EbsOptions = scaler.EbsOptions{
			EbsEnabled: aws.BoolValue(opts.EBSEnabled),
			VolumeType: aws.StringValue(opts.VolumeType),
			VolumeSize: aws.Int64Value(opts.VolumeSize),
			Iops:       aws.Int64Value(opts.Iops),
		}
	}
	if dc.SnapshotOptions != nil && dc.SnapshotOptions.Options != nil {
		out.SnapshotOptions = scaler.SnapshotOptions{
			AutomatedSnapshotStartHour: aws.Int64Value(dc.SnapshotOptions.Options.AutomatedSnapshotStartHour),
		}
	}
	if dc.VPCOptions != nil && dc.VPCOptions.Options != nil {
		opts := dc.VPCOptions.Options
		out.VpcOptions = &scaler.VpcOptions{
			VpcId:             aws.StringValue(opts.VPCId),
			SubnetIds:         aws.StringValueSlice(opts.SubnetIds),
			SecurityGroupIds:  aws.StringValueSlice(opts.SecurityGroupIds),
			AvailabilityZones: aws.StringValueSlice(opts.AvailabilityZones),
		}
	}
	return out
}

func toClusterConfig(c *es.ElasticsearchClusterConfig) scaler.ClusterConfig {
	out := scaler.ClusterConfig{
		InstanceType:           aws.StringValue(c.InstanceType),
		InstanceCount:          aws.Int64Value(c.InstanceCount),
		DedicatedMasterEnabled: aws.BoolValue(c.DedicatedMasterEnabled),
		DedicatedMasterType:    aws.StringValue(c.DedicatedMasterType),
		DedicatedMasterCount:   aws.Int64Value(c.DedicatedMasterCount),
		ZoneAwarenessEnabled:   aws.BoolValue(c.ZoneAwarenessEnabled),
		WarmEnabled:            aws.BoolValue(c.WarmEnabled),
		WarmType:               aws.StringValue(c.WarmType),
		WarmCount:              aws.Int64Value(c.WarmCount),
	}
	if c.ZoneAwarenessConfig != nil {
		out.AvailabilityZoneCount = aws.Int64Value(c.ZoneAwarenessConfig.AvailabilityZoneCount)
	}
	return out
}

func fromClusterConfig(c scaler.ClusterConfig) *es.ElasticsearchClusterConfig {
	out := &es.ElasticsearchClusterConfig{
		InstanceCount:          aws.Int64(c.InstanceCount),
		DedicatedMasterEnabled: aws.Bool(c.DedicatedMasterEnabled),
		ZoneAwarenessEnabled:   aws.Bool(c.ZoneAwarenessEnabled),
		WarmEnabled:            aws.Bool(c.WarmEnabled),
	}
	if c.InstanceType != "" {
		out.InstanceType = aws.String(c.InstanceType)
	}
	if c.DedicatedMasterEnabled {
		if c.DedicatedMasterType != "" {
			out.DedicatedMasterType = aws.String(c.DedicatedMasterType)
		}
		if c.DedicatedMasterCount > 0 {
			out.DedicatedMasterCount = aws.Int64(c.DedicatedMasterCount)
		}
	}
	if c.ZoneAwarenessEnabled && c.AvailabilityZoneCount > 0 {
		out.ZoneAwarenessConfig = &es.ZoneAwarenessConfig{AvailabilityZoneCount: aws.Int64(c.AvailabilityZoneCount)}
	}
	if c.WarmEnabled {
		if c.WarmType != "" {
			out.WarmType = aws.String(c.WarmType)
		}
		if c.WarmCount > 0 {
			out.WarmCount = aws.Int64(c.WarmCount)
		}
	}
	return out
}

func fromEbsOptions(e scaler.EbsOptions) *es.EBSOptions {
	out := &es.EBSOptions{EBSEnabled: aws.Bool(e.EbsEnabled)}
	if !e.EbsEnabled {
		return out
	}
	if e.VolumeType != "" {
		out.VolumeType = aws.String(e.VolumeType)
	}
	if e.VolumeSize > 0 {
		out.VolumeSize = aws.Int64(e.VolumeSize)
	}
	if e.Iops > 0 {
		out.Iops = aws.Int64(e.Iops)
	}
	return out
}

func toUpdateInput(input scaler.UpdateDomainConfigInput) *es.UpdateElasticsearchDomainConfigInput {
	return &es.UpdateElasticsearchDomainConfigInput{
		DomainName:                 aws.String(input.DomainName),
		ElasticsearchClusterConfig: fromClusterConfig(input.ClusterConfig),
		EBSOptions:                 fromEbsOptions(input.EbsOptions),
		SnapshotOptions: &es.SnapshotOptions{
			AutomatedSnapshotStartHour: aws.Int64(input.SnapshotOptions.AutomatedSnapshotStartHour),
		},
		VPCOptions: &es.VPCOptions{
			SubnetIds:        aws.StringSlice(input.VpcOptions.SubnetIds),
			SecurityGroupIds: aws.StringSlice(input.VpcOptions.SecurityGroupIds),
		},
		DryRun: aws.Bool(input.DryRun),
	}
}
