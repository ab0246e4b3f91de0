package audit

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/securityhub"
	"github.com/aws/aws-sdk-go-v2/service/securityhub/types"
	"github.com/pkg/errors"
)

// Sink receives findings. Submit must not panic on transport failures; it
// reports them through the returned Result instead.
type Sink interface {
	Submit(ctx context.Context, f Finding) Result
}

// Result is the outcome of one submission. A nil Reason means the finding was
// accepted by the sink.
type Result struct {
	FindingID string
	Reason    error
}

// Submitted returns a successful result for finding id.
func Submitted(id string) Result { return Result{FindingID: id} }

// Failed returns a failed result for finding id.
func Failed(id string, reason error) Result {
	if reason == nil {
		reason = errors.New("unknown submission failure")
	}
	return Result{FindingID: id, Reason: reason}
}

// OK returns true if the finding was accepted.
func (r Result) OK() bool { return r.Reason == nil }

// SecurityHubAPI is the subset of the Security Hub client used by the sink.
type SecurityHubAPI interface {
	BatchImportFindings(ctx context.Context, in *securityhub.BatchImportFindingsInput, optFns ...func(*securityhub.Options)) (*securityhub.BatchImportFindingsOutput, error)
}

// SecurityHub imports findings into AWS Security Hub, one finding per
// BatchImportFindings call. Security Hub upserts findings by ID.
type SecurityHub struct {
	c SecurityHubAPI
}

// NewSecurityHub returns a sink backed by client c.
func NewSecurityHub(c SecurityHubAPI) *SecurityHub {
	return &SecurityHub{c: c}
}

// Submit imports f. Call errors and per-finding import failures both produce
// a failed Result.
func (s *SecurityHub) Submit(ctx context.Context, f Finding) Result {
	out, err := s.c.BatchImportFindings(ctx, &securityhub.BatchImportFindingsInput{
		Findings: []types.AwsSecurityFinding{ASFF(&f)},
	})
	if err != nil {
		return Failed(f.ID, errors.WithStack(err))
	}
	if aws.ToInt32(out.FailedCount) > 0 {
		if len(out.FailedFindings) > 0 {
			ff := out.FailedFindings[0]
			return Failed(f.ID, errors.Errorf("finding rejected: %s: %s",
				aws.ToString(ff.ErrorCode), aws.ToString(ff.ErrorMessage)))
		}
		return Failed(f.ID, errors.New("finding rejected"))
	}
	return Submitted(f.ID)
}

// ASFF converts f to the AWS Security Finding Format.
func ASFF(f *Finding) types.AwsSecurityFinding {
	ts := aws.String(f.Timestamp())
	r := types.Resource{
		Type:      aws.String(f.Resource.Type),
		Id:        aws.String(f.Resource.ID),
		Partition: types.Partition(f.Resource.Partition),
		Region:    aws.String(f.Resource.Region),
	}
	if len(f.Resource.Details) > 0 {
		r.Details = &types.ResourceDetails{Other: copyMap(f.Resource.Details)}
	}
	return types.AwsSecurityFinding{
		SchemaVersion:   aws.String(SchemaVersion),
		Id:              aws.String(f.ID),
		ProductArn:      aws.String(f.ProductARN),
		GeneratorId:     aws.String(f.GeneratorID),
		AwsAccountId:    aws.String(f.AccountID),
		Types:           append([]string(nil), f.Types...),
		FirstObservedAt: ts,
		CreatedAt:       ts,
		UpdatedAt:       ts,
		Severity:        &types.Severity{Label: types.SeverityLabel(f.Severity)},
		Confidence:      aws.Int32(f.Confidence),
		Title:           aws.String(f.Title),
		Description:     aws.String(f.Description),
		Remediation: &types.Remediation{
			Recommendation: &types.Recommendation{
				Text: aws.String(f.Remediation.Text),
				Url:  aws.String(f.Remediation.URL),
			},
		},
		ProductFields: copyMap(f.ProductFields),
		Resources:     []types.Resource{r},
		Compliance:    &types.Compliance{Status: types.ComplianceStatus(f.Status)},
		RecordState:   types.RecordState(f.RecordState),
	}
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cpy := make(map[string]string, len(m))
	for k, v := range m {
		cpy[k] = v
	}
	return cpy
}
