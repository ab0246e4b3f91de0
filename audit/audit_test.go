package audit

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/kinesis"
	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	testAccount = Account{Partition: "aws", Region: "us-east-1", ID: "123456789012"}
	testTime    = time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
)

func streamARN(name string) string {
	return "arn:aws:kinesis:us-east-1:123456789012:stream/" + name
}

func desc(name string, enc types.EncryptionType, mon ...[]types.MetricsName) *types.StreamDescription {
	d := &types.StreamDescription{
		StreamName:     aws.String(name),
		StreamARN:      aws.String(streamARN(name)),
		EncryptionType: enc,
	}
	for _, m := range mon {
		d.EnhancedMonitoring = append(d.EnhancedMonitoring, types.EnhancedMetrics{ShardLevelMetrics: m})
	}
	return d
}

// fakeKinesis serves ListStreams pages and DescribeStream results.
type fakeKinesis struct {
	pages   []kinesis.ListStreamsOutput
	streams map[string]*types.StreamDescription
	listErr error
	descErr map[string]error

	listIn    []kinesis.ListStreamsInput
	described []string
}

func newFakeKinesis(ds ...*types.StreamDescription) *fakeKinesis {
	f := &fakeKinesis{streams: make(map[string]*types.StreamDescription)}
	var names []string
	for _, d := range ds {
		name := aws.ToString(d.StreamName)
		names = append(names, name)
		f.streams[name] = d
	}
	f.pages = []kinesis.ListStreamsOutput{{StreamNames: names, HasMoreStreams: aws.Bool(false)}}
	return f
}

func (f *fakeKinesis) ListStreams(_ context.Context, in *kinesis.ListStreamsInput, _ ...func(*kinesis.Options)) (*kinesis.ListStreamsOutput, error) {
	f.listIn = append(f.listIn, *in)
	if f.listErr != nil {
		return nil, f.listErr
	}
	i := len(f.listIn) - 1
	if i >= len(f.pages) {
		return &kinesis.ListStreamsOutput{HasMoreStreams: aws.Bool(false)}, nil
	}
	out := f.pages[i]
	return &out, nil
}

func (f *fakeKinesis) DescribeStream(_ context.Context, in *kinesis.DescribeStreamInput, _ ...func(*kinesis.Options)) (*kinesis.DescribeStreamOutput, error) {
	name := aws.ToString(in.StreamName)
	f.described = append(f.described, name)
	if err := f.descErr[name]; err != nil {
		return nil, err
	}
	d, ok := f.streams[name]
	if !ok {
		return nil, errors.Errorf("stream %q not found", name)
	}
	return &kinesis.DescribeStreamOutput{StreamDescription: d}, nil
}

// recordSink accepts every finding.
type recordSink struct{ got []Finding }

func (s *recordSink) Submit(_ context.Context, f Finding) Result {
	s.got = append(s.got, f)
	return Submitted(f.ID)
}

type mockSink struct{ mock.Mock }

func (m *mockSink) Submit(ctx context.Context, f Finding) Result {
	args := m.Called(ctx, f)
	return args.Get(0).(Result)
}

func testAuditor(kin KinesisAPI, sink Sink, log *zap.Logger, opts Opts) *Auditor {
	a := New(testAccount, kin, sink, log, opts)
	a.now = func() time.Time { return testTime }
	return a
}

func TestRun(t *testing.T) {
	kin := newFakeKinesis(
		desc("A", types.EncryptionTypeNone, []types.MetricsName{}),
		desc("B", types.EncryptionTypeKms, []types.MetricsName{types.MetricsNameIncomingBytes}),
	)
	sink := new(recordSink)
	a := testAuditor(kin, sink, nil, Opts{ProductName: "ElectricEye"})
	sum, err := a.Run(context.Background())
	require.NoError(t, err)

	type result struct {
		id     string
		status Status
		sev    Severity
	}
	want := []result{
		{streamARN("A") + "/kinesis-streams-encryption-check", StatusFailed, SeverityHigh},
		{streamARN("B") + "/kinesis-streams-encryption-check", StatusPassed, SeverityInformational},
		{streamARN("A") + "/kinesis-streams-enhanced-monitoring-check", StatusFailed, SeverityLow},
		{streamARN("B") + "/kinesis-streams-enhanced-monitoring-check", StatusPassed, SeverityInformational},
	}
	have := make([]result, len(sink.got))
	for i, f := range sink.got {
		have[i] = result{f.ID, f.Status, f.Severity}
	}
	assert.Equal(t, want, have)

	// One list call, each stream described once per check
	require.Len(t, kin.listIn, 1)
	assert.Equal(t, int32(DefaultPageLimit), aws.ToInt32(kin.listIn[0].Limit))
	assert.Equal(t, []string{"A", "B", "A", "B"}, kin.described)

	assert.Equal(t, 2, sum.Streams)
	assert.Equal(t, 4, sum.Findings)
	assert.Equal(t, 2, sum.Passed)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, 4, sum.Submitted)
	assert.Zero(t, sum.Rejected)
	assert.Zero(t, sum.ExecTime)
}

func TestRunNoStreams(t *testing.T) {
	kin := newFakeKinesis()
	sink := new(recordSink)
	sum, err := testAuditor(kin, sink, nil, Opts{}).Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sink.got)
	assert.Empty(t, kin.described)
	assert.Zero(t, sum.Streams)
}

func TestRunSelectedChecks(t *testing.T) {
	kin := newFakeKinesis(desc("A", types.EncryptionTypeNone, nil))
	sink := new(recordSink)
	a := testAuditor(kin, sink, nil, Opts{Checks: []*Check{&enhancedMonitoring}})
	_, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.got, 1)
	assert.Equal(t, enhancedMonitoring.Slug, sink.got[0].Check)
	assert.Equal(t, StatusFailed, sink.got[0].Status)
}

func TestRunSubmitFailure(t *testing.T) {
	kin := newFakeKinesis(
		desc("A", types.EncryptionTypeNone, nil),
		desc("B", types.EncryptionTypeKms, nil),
	)
	failID := streamARN("A") + "/kinesis-streams-encryption-check"
	sink := new(mockSink)
	sink.On("Submit", mock.Anything, mock.MatchedBy(func(f Finding) bool {
		return f.ID == failID
	})).Return(Failed(failID, errors.New("throttled"))).Once()
	sink.On("Submit", mock.Anything, mock.Anything).Return(Result{})

	core, logs := observer.New(zapcore.InfoLevel)
	sum, err := testAuditor(kin, sink, zap.New(core), Opts{}).Run(context.Background())
	require.NoError(t, err)
	sink.AssertNumberOfCalls(t, "Submit", 4)
	sink.AssertExpectations(t)

	assert.Equal(t, 4, sum.Findings)
	assert.Equal(t, 3, sum.Submitted)
	assert.Equal(t, 1, sum.Rejected)

	failed := logs.FilterMessage("finding submission failed").All()
	require.Len(t, failed, 1)
	assert.Equal(t, failID, failed[0].ContextMap()["finding_id"])
}

func TestRunListError(t *testing.T) {
	kin := newFakeKinesis(desc("A", types.EncryptionTypeNone, nil))
	kin.listErr = errors.New("access denied")
	sink := new(recordSink)
	_, err := testAuditor(kin, sink, nil, Opts{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
	assert.Empty(t, kin.described)
	assert.Empty(t, sink.got)
}

func TestRunDescribeError(t *testing.T) {
	kin := newFakeKinesis(
		desc("A", types.EncryptionTypeNone, nil),
		desc("B", types.EncryptionTypeKms, nil),
	)
	kin.descErr = map[string]error{"B": errors.New("ResourceNotFoundException")}
	sink := new(recordSink)
	sum, err := testAuditor(kin, sink, nil, Opts{}).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `describe stream "B"`)
	require.Len(t, sink.got, 1)
	assert.Equal(t, streamARN("A")+"/kinesis-streams-encryption-check", sink.got[0].ID)
	assert.Equal(t, 1, sum.Findings)
}

func TestRunDuplicateMonitoringIDs(t *testing.T) {
	kin := newFakeKinesis(desc("C", types.EncryptionTypeKms,
		[]types.MetricsName{}, []types.MetricsName{types.MetricsNameAll}))
	sink := new(recordSink)
	core, logs := observer.New(zapcore.WarnLevel)
	a := testAuditor(kin, sink, zap.New(core), Opts{Checks: []*Check{&enhancedMonitoring}})
	_, err := a.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sink.got, 2)
	assert.Equal(t, sink.got[0].ID, sink.got[1].ID)
	assert.Equal(t, 1, logs.FilterMessage("multiple findings share one id").Len())
}
