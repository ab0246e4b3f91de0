package audit

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultPageLimit is the ListStreams page size.
const DefaultPageLimit = 100

// KinesisAPI is the subset of the Kinesis client used by the auditor.
type KinesisAPI interface {
	ListStreams(ctx context.Context, in *kinesis.ListStreamsInput, optFns ...func(*kinesis.Options)) (*kinesis.ListStreamsOutput, error)
	DescribeStream(ctx context.Context, in *kinesis.DescribeStreamInput, optFns ...func(*kinesis.Options)) (*kinesis.DescribeStreamOutput, error)
}

// Stream is a snapshot of the stream attributes that the checks need.
type Stream struct {
	Name       string
	ARN        string
	Encryption types.EncryptionType
	Monitoring [][]types.MetricsName // Shard-level metrics of each entry
}

// ListStreams returns stream names. Only the first page is returned unless
// pagination is enabled; streams past that page are not audited.
func (a *Auditor) ListStreams(ctx context.Context) ([]string, error) {
	in := &kinesis.ListStreamsInput{Limit: aws.Int32(a.pageLimit())}
	if !a.opts.Paginate {
		out, err := a.kin.ListStreams(ctx, in)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		if aws.ToBool(out.HasMoreStreams) {
			a.log.Warn("stream list truncated, remaining streams will not be audited",
				zap.Int("listed", len(out.StreamNames)),
				zap.Int32("page_limit", a.pageLimit()))
		}
		return out.StreamNames, nil
	}
	var names []string
	p := kinesis.NewListStreamsPaginator(a.kin, in)
	for p.HasMorePages() {
		out, err := p.NextPage(ctx)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		names = append(names, out.StreamNames...)
	}
	return names, nil
}

// DescribeStream fetches the encryption and monitoring configuration of one
// stream.
func (a *Auditor) DescribeStream(ctx context.Context, name string) (*Stream, error) {
	out, err := a.kin.DescribeStream(ctx, &kinesis.DescribeStreamInput{
		StreamName: aws.String(name),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "describe stream %q", name)
	}
	d := out.StreamDescription
	if d == nil {
		return nil, errors.Errorf("describe stream %q: empty description", name)
	}
	s := &Stream{
		Name:       aws.ToString(d.StreamName),
		ARN:        aws.ToString(d.StreamARN),
		Encryption: d.EncryptionType,
	}
	if s.Name == "" {
		s.Name = name
	}
	if s.Encryption == "" {
		s.Encryption = types.EncryptionTypeNone
	}
	if len(d.EnhancedMonitoring) > 0 {
		s.Monitoring = make([][]types.MetricsName, len(d.EnhancedMonitoring))
		for i, m := range d.EnhancedMonitoring {
			s.Monitoring[i] = m.ShardLevelMetrics
		}
	}
	return s, nil
}

// pageLimit returns the configured ListStreams page size.
func (a *Auditor) pageLimit() int32 {
	if a.opts.PageLimit > 0 {
		return a.opts.PageLimit
	}
	return DefaultPageLimit
}
