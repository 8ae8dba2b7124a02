package scaler

import (
	"context"
	"fmt"
	log "github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
)

type OutcomeStatus int

const (
	OutcomeApplied OutcomeStatus = iota
	OutcomeSkippedInactive
	OutcomeSkippedNoVpc
	OutcomeRefusedAtMinimum
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeApplied:
		return "applied"
	case OutcomeSkippedInactive:
		return "skipped-inactive"
	case OutcomeSkippedNoVpc:
		return "skipped-no-vpc"
	case OutcomeRefusedAtMinimum:
		return "refused-at-minimum"
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Outcome describes a completed ApplyScale call. Precondition failures are
// outcomes, not errors.
type Outcome struct {
	Status  OutcomeStatus
	Message string
	// set when Status is OutcomeApplied
	Plan           *ScalePlan
	DeploymentType string
}

type DryRunRejectedError struct {
	DeploymentType string
	Message        string
}

func (e *DryRunRejectedError) Error() string {
	return fmt.Sprintf("dry run error: %s", e.Message)
}

type Config struct {
	DomainName string
	Limits     Limits
}

func NewScaler(cfg Config, provider DomainConfigProvider) *Scaler {
	return &Scaler{
		domainName: cfg.DomainName,
		limits:     cfg.Limits,
		provider:   provider,
	}
}

type Scaler struct {
	domainName string
	limits     Limits
	provider   DomainConfigProvider
}

func (s *Scaler) DomainName() string {
	return s.domainName
}

func (s *Scaler) Limits() Limits {
	return s.limits
}

// ApplyScale reads the domain config, plans the new instance count, validates
// it with a dry run and applies it. Replica counts are planned but not pushed
// to the indexes.
func (s *Scaler) ApplyScale(ctx context.Context, scaleType ScaleType) (Outcome, error) {
	if !scaleType.Valid() {
		return Outcome{}, fmt.Errorf("scaler: invalid scale type: %s", scaleType)
	}
	out, err := s.applyScale(ctx, scaleType)
	if err != nil {
		return Outcome{}, errors.Wrapf(err, "scaler: an error occurred while running cluster %s", scaleType)
	}
	log.Info("scaler: "+out.Message, "domain", s.domainName, "scaleType", scaleType, "status", out.Status)
	return out, nil
}

func (s *Scaler) applyScale(ctx context.Context, scaleType ScaleType) (Outcome, error) {
	domainConfig, err := s.provider.DescribeDomainConfig(ctx, s.domainName)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "describe domain config failed")
	}

	if domainConfig.VersionState != DomainStateActive {
		return Outcome{
			Status:  OutcomeSkippedInactive,
			Message: fmt.Sprintf("Skipping scaling because domain state is %s", domainConfig.VersionState),
		}, nil
	}

	if domainConfig.VpcOptions.Empty() {
		return Outcome{
			Status:  OutcomeSkippedNoVpc,
			Message: "VPC Options not present. Ensure your domain is created with VPC options.",
		}, nil
	}
	if log.IsDebug() {
		log.Debug("scaler: vpc options", "domain", s.domainName, "vpcId", domainConfig.VpcOptions.VpcId,
			"subnets", domainConfig.VpcOptions.SubnetIds, "securityGroups", domainConfig.VpcOptions.SecurityGroupIds)
	}

	instanceCount := domainConfig.ClusterConfig.InstanceCount
	if scaleType == ScaleTypeDown && instanceCount <= s.limits.MinInstanceCount {
		return Outcome{
			Status:  OutcomeRefusedAtMinimum,
			Message: fmt.Sprintf("Cannot scale down to fewer than %d nodes.", s.limits.MinInstanceCount),
		}, nil
	}

	var plan ScalePlan
	if scaleType == ScaleTypeUp {
		plan = s.limits.ComputeScalePlan(instanceCount, scaleType)
	} else {
		plan = s.limits.resetPlan()
	}
	log.Info("scaler: planned topology", "domain", s.domainName, "scaleType", scaleType,
		"currentInstances", instanceCount, "newInstances", plan.NewInstanceCount,
		"newReplicas", plan.NewReplicasCount)

	domainConfig.ClusterConfig.InstanceCount = plan.NewInstanceCount
	input := s.updateInput(domainConfig)

	input.DryRun = true
	dryRunOut, err := s.provider.UpdateDomainConfig(ctx, input)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "dry run update failed")
	}
	if dryRunOut.DryRunResult == nil {
		return Outcome{}, errors.New("dry run returned no results")
	}
	dryRun := *dryRunOut.DryRunResult
	log.Info("scaler: dry run completed", "domain", s.domainName, "deploymentType", dryRun.DeploymentType,
		"message", dryRun.Message)

	if dryRun.DeploymentType == DeploymentTypeNone {
		return Outcome{}, &DryRunRejectedError{DeploymentType: dryRun.DeploymentType, Message: dryRun.Message}
	}

	input.DryRun = false
	_, err = s.provider.UpdateDomainConfig(ctx, input)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "update failed")
	}

	return Outcome{
		Status: OutcomeApplied,
		Message: fmt.Sprintf("Scaled domain %s to %d instances (deployment type: %s)", s.domainName,
			plan.NewInstanceCount, dryRun.DeploymentType),
		Plan:           &plan,
		DeploymentType: dryRun.DeploymentType,
	}, nil
}

func (s *Scaler) updateInput(domainConfig DomainConfig) UpdateDomainConfigInput {
	vpc := VpcOptions{}
	if domainConfig.VpcOptions != nil {
		vpc.SubnetIds = domainConfig.VpcOptions.SubnetIds
		vpc.SecurityGroupIds = domainConfig.VpcOptions.SecurityGroupIds
	}
	if vpc.SubnetIds == nil {
		vpc.SubnetIds = []string{}
	}
	if vpc.SecurityGroupIds == nil {
		vpc.SecurityGroupIds = []string{}
	}
	return UpdateDomainConfigInput{
		DomainName:      s.domainName,
		ClusterConfig:   domainConfig.ClusterConfig,
		EbsOptions:      domainConfig.EbsOptions.ForUpdate(),
		SnapshotOptions: domainConfig.SnapshotOptions,
		VpcOptions:      vpc,
	}
}
