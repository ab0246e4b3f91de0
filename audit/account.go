package audit

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/pkg/errors"
)

// STSAPI is the subset of the STS client used to identify the account.
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Account identifies the audited account/region. It is resolved once at
// startup and shared by every finding of the run.
type Account struct {
	Partition string // AWS partition ("aws", "aws-cn", "aws-us-gov")
	Region    string // AWS region
	ID        string // 12-digit account ID
}

// Ident returns the account of the current credentials in the given region.
// The partition is taken from the caller ARN, so GovCloud and China regions
// produce valid ARNs.
func Ident(ctx context.Context, c STSAPI, region string) (Account, error) {
	if region == "" {
		return Account{}, errors.New("aws region is not configured")
	}
	id, err := c.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return Account{}, errors.WithStack(err)
	}
	caller := aws.ToString(id.Arn)
	v, err := arn.Parse(caller)
	if err != nil {
		return Account{}, errors.Wrapf(err, "invalid caller arn %q", caller)
	}
	ac := Account{
		Partition: v.Partition,
		Region:    region,
		ID:        aws.ToString(id.Account),
	}
	if ac.ID == "" {
		ac.ID = v.AccountID
	}
	return ac, nil
}

// ProductARN returns the ARN of the default Security Hub product for the
// account, which identifies findings imported by the account itself.
func (ac *Account) ProductARN() string {
	return ac.newARN("securityhub", "product", ac.ID, "default")
}

// newARN constructs an ARN for a resource of the given service in the account.
func (ac *Account) newARN(service string, resource ...string) string {
	return arn.ARN{
		Partition: ac.Partition,
		Service:   service,
		Region:    ac.Region,
		AccountID: ac.ID,
		Resource:  strings.Join(resource, "/"),
	}.String()
}
