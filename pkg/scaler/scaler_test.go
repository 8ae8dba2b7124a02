package scaler

import (
	"context"
	"fmt"
	fuzz "github.com/google/gofuzz"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

type fakeProvider struct {
	domainConfig DomainConfig
	describeErr  error
	dryRunResult *DryRunResult
	dryRunErr    error
	updateErr    error

	describeCalls []string
	updates       []UpdateDomainConfigInput
}

func (f *fakeProvider) DescribeDomainConfig(ctx context.Context, domainName string) (DomainConfig, error) {
	f.describeCalls = append(f.describeCalls, domainName)
	return f.domainConfig, f.describeErr
}

func (f *fakeProvider) UpdateDomainConfig(ctx context.Context, input UpdateDomainConfigInput) (UpdateDomainConfigOutput, error) {
	f.updates = append(f.updates, input)
	if input.DryRun {
		return UpdateDomainConfigOutput{DryRunResult: f.dryRunResult}, f.dryRunErr
	}
	return UpdateDomainConfigOutput{ClusterConfigState: DomainStateProcessing}, f.updateErr
}

func (f *fakeProvider) realUpdates() []UpdateDomainConfigInput {
	out := []UpdateDomainConfigInput{}
	for _, u := range f.updates {
		if !u.DryRun {
			out = append(out, u)
		}
	}
	return out
}

func activeDomain(instanceCount int64) DomainConfig {
	return DomainConfig{
		ElasticsearchVersion: "7.10",
		VersionState:         DomainStateActive,
		ClusterConfig: ClusterConfig{
			InstanceType:           "r5.large.elasticsearch",
			InstanceCount:          instanceCount,
			DedicatedMasterEnabled: true,
			DedicatedMasterType:    "m5.large.elasticsearch",
			DedicatedMasterCount:   3,
		},
		EbsOptions:      EbsOptions{EbsEnabled: true, VolumeType: "gp2", VolumeSize: 100},
		SnapshotOptions: SnapshotOptions{AutomatedSnapshotStartHour: 2},
		VpcOptions: &VpcOptions{
			VpcId:            "vpc-1",
			SubnetIds:        []string{"subnet-a", "subnet-b"},
			SecurityGroupIds: []string{"sg-1"},
		},
	}
}

func newTestScaler(p *fakeProvider) *Scaler {
	return NewScaler(Config{DomainName: "search", Limits: DefaultLimits}, p)
}

func TestSkipsWhenDomainNotActive(t *testing.T) {
	domain := activeDomain(3)
	domain.VersionState = DomainStateProcessing
	p := &fakeProvider{domainConfig: domain}

	out, err := newTestScaler(p).ApplyScale(context.Background(), ScaleTypeUp)
	assert.Nil(t, err)
	assert.Equal(t, OutcomeSkippedInactive, out.Status)
	assert.Equal(t, "Skipping scaling because domain state is Processing", out.Message)
	assert.Equal(t, []string{"search"}, p.describeCalls)
	assert.Empty(t, p.updates)
}

func TestSkipsWhenVpcOptionsMissing(t *testing.T) {
	for _, vpc := range []*VpcOptions{nil, {}} {
		domain := activeDomain(4)
		domain.VpcOptions = vpc
		p := &fakeProvider{domainConfig: domain}

		out, err := newTestScaler(p).ApplyScale(context.Background(), ScaleTypeUp)
		assert.Nil(t, err)
		assert.Equal(t, OutcomeSkippedNoVpc, out.Status)
		assert.Equal(t, "VPC Options not present. Ensure your domain is created with VPC options.", out.Message)
		assert.Empty(t, p.updates)
	}
}

func TestRefusesScaleDownAtMinimum(t *testing.T) {
	for _, count := range []int64{0, 2, 3} {
		p := &fakeProvider{domainConfig: activeDomain(count)}

		out, err := newTestScaler(p).ApplyScale(context.Background(), ScaleTypeDown)
		assert.Nil(t, err)
		assert.Equal(t, OutcomeRefusedAtMinimum, out.Status)
		assert.Equal(t, "Cannot scale down to fewer than 3 nodes.", out.Message)
		assert.Empty(t, p.updates)
	}
}

func TestScaleUpDryRunRejected(t *testing.T) {
	p := &fakeProvider{
		domainConfig: activeDomain(3),
		dryRunResult: &DryRunResult{DeploymentType: DeploymentTypeNone, Message: "instance type not available"},
	}

	_, err := newTestScaler(p).ApplyScale(context.Background(), ScaleTypeUp)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "instance type not available")
	assert.Contains(t, err.Error(), "scale_up")

	rejected, ok := errors.Cause(err).(*DryRunRejectedError)
	require.True(t, ok)
	assert.Equal(t, "instance type not available", rejected.Message)

	assert.Len(t, p.updates, 1)
	assert.True(t, p.updates[0].DryRun)
	assert.Empty(t, p.realUpdates())
}

func TestScaleUpApplied(t *testing.T) {
	p := &fakeProvider{
		domainConfig: activeDomain(3),
		dryRunResult: &DryRunResult{DeploymentType: "Blue/Green", Message: "requires blue/green"},
	}

	out, err := newTestScaler(p).ApplyScale(context.Background(), ScaleTypeUp)
	require.Nil(t, err)
	assert.Equal(t, OutcomeApplied, out.Status)
	assert.Equal(t, &ScalePlan{NewInstanceCount: 6, NewReplicasCount: 2}, out.Plan)
	assert.Equal(t, "Blue/Green", out.DeploymentType)
	assert.Equal(t, "Scaled domain search to 6 instances (deployment type: Blue/Green)", out.Message)

	require.Len(t, p.updates, 2)
	dry, applied := p.updates[0], p.updates[1]
	assert.True(t, dry.DryRun)
	assert.False(t, applied.DryRun)

	applied.DryRun = true
	assert.Equal(t, dry, applied)

	assert.Equal(t, "search", applied.DomainName)
	assert.Equal(t, int64(6), applied.ClusterConfig.InstanceCount)
	assert.Equal(t, "r5.large.elasticsearch", applied.ClusterConfig.InstanceType)
	assert.Equal(t, int64(3), applied.ClusterConfig.DedicatedMasterCount)
	assert.Equal(t, EbsOptions{EbsEnabled: true, VolumeType: "gp2", VolumeSize: 100}, applied.EbsOptions)
	assert.Equal(t, SnapshotOptions{AutomatedSnapshotStartHour: 2}, applied.SnapshotOptions)
	assert.Equal(t, VpcOptions{SubnetIds: []string{"subnet-a", "subnet-b"}, SecurityGroupIds: []string{"sg-1"}},
		applied.VpcOptions)
}

func TestScaleDownResetsToMinimum(t *testing.T) {
	// the decrement plan for 6 would be 5, scale down always resets to the minimum
	p := &fakeProvider{
		domainConfig: activeDomain(6),
		dryRunResult: &DryRunResult{DeploymentType: "DynamicUpdate"},
	}

	out, err := newTestScaler(p).ApplyScale(context.Background(), ScaleTypeDown)
	require.Nil(t, err)
	assert.Equal(t, &ScalePlan{NewInstanceCount: 3, NewReplicasCount: 1}, out.Plan)
	require.Len(t, p.realUpdates(), 1)
	assert.Equal(t, int64(3), p.realUpdates()[0].ClusterConfig.InstanceCount)
}

func TestDisabledEbsSubmittedWithoutAttributes(t *testing.T) {
	domain := activeDomain(3)
	domain.EbsOptions = EbsOptions{EbsEnabled: false, VolumeType: "gp2", VolumeSize: 10}
	p := &fakeProvider{domainConfig: domain, dryRunResult: &DryRunResult{DeploymentType: "DynamicUpdate"}}

	_, err := newTestScaler(p).ApplyScale(context.Background(), ScaleTypeUp)
	require.Nil(t, err)
	for _, u := range p.updates {
		assert.Equal(t, EbsOptions{}, u.EbsOptions)
	}
}

func TestProviderErrorsAreWrapped(t *testing.T) {
	describeErr := fmt.Errorf("AccessDenied")
	p := &fakeProvider{describeErr: describeErr}
	_, err := newTestScaler(p).ApplyScale(context.Background(), ScaleTypeDown)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "an error occurred while running cluster scale_down")
	assert.Equal(t, describeErr, errors.Cause(err))

	dryRunErr := fmt.Errorf("ValidationException")
	p = &fakeProvider{domainConfig: activeDomain(3), dryRunErr: dryRunErr}
	_, err = newTestScaler(p).ApplyScale(context.Background(), ScaleTypeUp)
	require.NotNil(t, err)
	assert.Equal(t, dryRunErr, errors.Cause(err))
	assert.Empty(t, p.realUpdates())

	updateErr := fmt.Errorf("LimitExceeded")
	p = &fakeProvider{domainConfig: activeDomain(3), dryRunResult: &DryRunResult{DeploymentType: "DynamicUpdate"},
		updateErr: updateErr}
	_, err = newTestScaler(p).ApplyScale(context.Background(), ScaleTypeUp)
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "scale_up")
	assert.Equal(t, updateErr, errors.Cause(err))
}

func TestMissingDryRunResultIsAnError(t *testing.T) {
	p := &fakeProvider{domainConfig: activeDomain(3)}
	_, err := newTestScaler(p).ApplyScale(context.Background(), ScaleTypeUp)
	assert.NotNil(t, err)
	assert.Empty(t, p.realUpdates())
}

func TestApplyScaleRejectsUnknownType(t *testing.T) {
	p := &fakeProvider{domainConfig: activeDomain(3)}
	_, err := newTestScaler(p).ApplyScale(context.Background(), ScaleType("sideways"))
	assert.NotNil(t, err)
	assert.Empty(t, p.describeCalls)
}

func TestDryRunAlwaysPrecedesUpdate(t *testing.T) {
	f := fuzz.New().NilChance(0)
	for i := 0; i < 500; i++ {
		var domain DomainConfig
		f.Fuzz(&domain)
		domain.VersionState = DomainStateActive
		domain.VpcOptions.SubnetIds = append(domain.VpcOptions.SubnetIds, "subnet-x")

		var scaleType ScaleType
		if i%2 == 0 {
			scaleType = ScaleTypeUp
		} else {
			scaleType = ScaleTypeDown
		}

		p := &fakeProvider{domainConfig: domain, dryRunResult: &DryRunResult{DeploymentType: "DynamicUpdate"}}
		out, err := newTestScaler(p).ApplyScale(context.Background(), scaleType)
		require.Nil(t, err)

		if out.Status == OutcomeRefusedAtMinimum {
			assert.Empty(t, p.updates)
			continue
		}
		require.Len(t, p.updates, 2)
		assert.True(t, p.updates[0].DryRun)
		assert.False(t, p.updates[1].DryRun)
		newCount := p.updates[1].ClusterConfig.InstanceCount
		assert.True(t, newCount >= DefaultLimits.MinInstanceCount && newCount <= DefaultLimits.MaxInstanceCount)
	}
}
