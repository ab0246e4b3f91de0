// Package audit checks Kinesis data streams for encryption and enhanced
// monitoring and reports the results as Security Hub findings.
package audit

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Opts specifies optional auditor parameters.
type Opts struct {
	PageLimit   int32    // ListStreams page size (default 100)
	Paginate    bool     // Follow all ListStreams pages
	ProductName string   // ProductFields "Product Name" value
	Checks      []*Check // Checks to run, in order (default all)
}

// Auditor audits the streams of one account/region. All external services are
// injected so that the auditor holds no global state.
type Auditor struct {
	Account

	kin  KinesisAPI
	sink Sink
	log  *zap.Logger
	opts Opts
	now  func() time.Time
}

// New creates an auditor for account ac. A nil logger disables logging.
func New(ac Account, kin KinesisAPI, sink Sink, log *zap.Logger, opts Opts) *Auditor {
	if log == nil {
		log = zap.NewNop()
	}
	if len(opts.Checks) == 0 {
		opts.Checks = Checks()
	}
	return &Auditor{
		Account: ac,
		kin:     kin,
		sink:    sink,
		log:     log,
		opts:    opts,
		now:     time.Now,
	}
}

// Run lists the streams once and then makes one sequential pass over all of
// them for each check. Listing and describe errors abort the run and are
// returned together with the partial summary. Submission failures are logged
// and counted, but never abort the run.
func (a *Auditor) Run(ctx context.Context) (*Summary, error) {
	sum := &Summary{start: a.now()}
	defer func() { sum.done(a.now()) }()
	names, err := a.ListStreams(ctx)
	if err != nil {
		return sum, err
	}
	sum.Streams = len(names)
	a.log.Info("listed streams", zap.Int("count", len(names)))
	for _, c := range a.opts.Checks {
		for _, name := range names {
			s, err := a.DescribeStream(ctx, name)
			if err != nil {
				return sum, err
			}
			fs := a.evaluate(c, s)
			if len(fs) > 1 {
				// Security Hub keeps only the last one
				a.log.Warn("multiple findings share one id",
					zap.String("finding_id", fs[0].ID),
					zap.Int("count", len(fs)))
			}
			for _, f := range fs {
				a.report(ctx, sum, f)
			}
		}
	}
	return sum, nil
}

// report submits f and logs the result.
func (a *Auditor) report(ctx context.Context, sum *Summary, f Finding) {
	r := a.sink.Submit(ctx, f)
	sum.add(&f, r)
	if !r.OK() {
		a.log.Error("finding submission failed",
			zap.String("finding_id", f.ID),
			zap.Object("err", DecodeErr(r.Reason)))
		return
	}
	a.log.Debug("finding submitted",
		zap.String("finding_id", f.ID),
		zap.String("status", string(f.Status)),
		zap.String("severity", string(f.Severity)))
}
