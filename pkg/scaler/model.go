package scaler

import (
	"context"
)

// ScaleType is the requested scaling direction.
type ScaleType string

const (
	ScaleTypeUp   ScaleType = "scale_up"
	ScaleTypeDown ScaleType = "scale_down"
)

func (s ScaleType) Valid() bool {
	return s == ScaleTypeUp || s == ScaleTypeDown
}

// Domain states reported for the Elasticsearch version option.
const (
	DomainStateActive                 = "Active"
	DomainStateProcessing             = "Processing"
	DomainStateRequiresIndexDocuments = "RequiresIndexDocuments"
)

// DeploymentTypeNone is returned by a dry run when the change cannot be deployed.
const DeploymentTypeNone = "None"

// DomainConfig is a transient copy of the domain settings the scaler reads and
// submits back.
type DomainConfig struct {
	ElasticsearchVersion string
	VersionState         string
	ClusterConfig        ClusterConfig
	EbsOptions           EbsOptions
	SnapshotOptions      SnapshotOptions
	// nil if the domain is not VPC attached
	VpcOptions *VpcOptions
}

// ClusterConfig is the node topology of the domain.
type ClusterConfig struct {
	InstanceType           string
	InstanceCount          int64
	DedicatedMasterEnabled bool
	DedicatedMasterType    string
	DedicatedMasterCount   int64
	ZoneAwarenessEnabled   bool
	AvailabilityZoneCount  int64
	WarmEnabled            bool
	WarmType               string
	WarmCount              int64
}

// EbsOptions describes the per-node EBS volume.
type EbsOptions struct {
	EbsEnabled bool
	VolumeType string
	VolumeSize int64
	Iops       int64
}

// ForUpdate returns the options to submit on update. A disabled volume is sent
// with no other attributes.
func (e EbsOptions) ForUpdate() EbsOptions {
	if !e.EbsEnabled {
		return EbsOptions{EbsEnabled: false}
	}
	return e
}

type SnapshotOptions struct {
	AutomatedSnapshotStartHour int64
}

// VpcOptions is the VPC attachment of the domain.
type VpcOptions struct {
	VpcId             string
	SubnetIds         []string
	SecurityGroupIds  []string
	AvailabilityZones []string
}

func (v *VpcOptions) Empty() bool {
	return v == nil || (v.VpcId == "" && len(v.SubnetIds) == 0 && len(v.SecurityGroupIds) == 0 &&
		len(v.AvailabilityZones) == 0)
}

// UpdateDomainConfigInput is one update or dry run submitted to the provider.
type UpdateDomainConfigInput struct {
	DomainName      string
	ClusterConfig   ClusterConfig
	EbsOptions      EbsOptions
	SnapshotOptions SnapshotOptions
	VpcOptions      VpcOptions
	DryRun          bool
}

type DryRunResult struct {
	DeploymentType string
	Message        string
}

type UpdateDomainConfigOutput struct {
	// nil unless the update was a dry run
	DryRunResult *DryRunResult
	// State of the cluster config option after the call, if reported
	ClusterConfigState string
}

// DomainConfigProvider reads and writes domain config on the control plane.
type DomainConfigProvider interface {
	DescribeDomainConfig(ctx context.Context, domainName string) (DomainConfig, error)
	UpdateDomainConfig(ctx context.Context, input UpdateDomainConfigInput) (UpdateDomainConfigOutput, error)
}

// IndexSettingsUpdater changes index level settings on the domain endpoint.
type IndexSettingsUpdater interface {
	ChangeReplicas(ctx context.Context, indexAlias string, replicasCount int64) error
}
