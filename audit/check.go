package audit

import (
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/kinesis/types"
	"github.com/pkg/errors"
)

// Finding types shared by the checks.
const (
	typeBestPractices = "Software and Configuration Checks/AWS Security Best Practices"
	typeDataExposure  = "Effects/Data Exposure"
)

// Outcome is the evaluated result of a check for one stream or monitoring
// entry. Desc is a format string that receives the stream name.
type Outcome struct {
	Status   Status
	Severity Severity
	Desc     string
}

// state returns the record state that accompanies the outcome status.
func (o *Outcome) state() RecordState {
	if o.Status == StatusFailed {
		return RecordActive
	}
	return RecordArchived
}

// Check describes one compliance check. Eval returns one verdict per finding
// that the check emits for the stream (true = pass).
type Check struct {
	Slug        string
	Title       string
	Types       []string
	Remediation Remediation
	Pass        Outcome
	Fail        Outcome
	Eval        func(s *Stream) []bool
}

// outcome returns the check outcome for a single verdict.
func (c *Check) outcome(ok bool) *Outcome {
	if ok {
		return &c.Pass
	}
	return &c.Fail
}

// encryption fails for streams without server-side encryption. A stream
// without an encryption type is unencrypted.
var encryption = Check{
	Slug:  "kinesis-streams-encryption-check",
	Title: "[Kinesis.1] Kinesis Data Streams should be encrypted",
	Types: []string{typeBestPractices, typeDataExposure},
	Remediation: Remediation{
		Text: "For more information on Kinesis Data Stream encryption refer to the How Do I Get Started with Server-Side Encryption? section of the Amazon Kinesis Data Streams Developer Guide",
		URL:  "https://docs.aws.amazon.com/streams/latest/dev/getting-started-with-sse.html",
	},
	Pass: Outcome{
		Status:   StatusPassed,
		Severity: SeverityInformational,
		Desc:     "Kinesis data stream %s is encrypted.",
	},
	Fail: Outcome{
		Status:   StatusFailed,
		Severity: SeverityHigh,
		Desc:     "Kinesis data stream %s is not encrypted. Refer to the remediation instructions to remediate this behavior",
	},
	Eval: func(s *Stream) []bool {
		enc := s.Encryption
		return []bool{enc != "" && enc != types.EncryptionTypeNone}
	},
}

// enhancedMonitoring fails for every monitoring configuration entry that has
// no shard-level metrics enabled.
var enhancedMonitoring = Check{
	Slug:  "kinesis-streams-enhanced-monitoring-check",
	Title: "[Kinesis.2] Business-critical Kinesis Data Streams should have detailed monitoring configured",
	Types: []string{typeBestPractices},
	Remediation: Remediation{
		Text: "For more information on Kinesis Data Stream enhanced monitoring refer to the Monitoring the Amazon Kinesis Data Streams Service with Amazon CloudWatch section of the Amazon Kinesis Data Streams Developer Guide",
		URL:  "https://docs.aws.amazon.com/streams/latest/dev/monitoring-with-cloudwatch.html",
	},
	Pass: Outcome{
		Status:   StatusPassed,
		Severity: SeverityInformational,
		Desc:     "Kinesis data stream %s has detailed monitoring configured.",
	},
	Fail: Outcome{
		Status:   StatusFailed,
		Severity: SeverityLow,
		Desc:     "Kinesis data stream %s does not have detailed monitoring configured, detailed monitoring allows shard-level metrics to be delivered every minute at additional cost. Business-critical streams should be considered for this configuration. Refer to the remediation instructions for information on this configuration",
	},
	Eval: func(s *Stream) []bool {
		v := make([]bool, len(s.Monitoring))
		for i, metrics := range s.Monitoring {
			v[i] = len(metrics) > 0
		}
		return v
	},
}

// registry lists all checks in execution order.
var registry = [...]*Check{&encryption, &enhancedMonitoring}

// Checks returns copies of all checks in execution order. Callers may modify
// the returned checks without affecting other auditors.
func Checks() []*Check {
	all := make([]*Check, len(registry))
	for i, c := range registry {
		all[i] = c.clone()
	}
	return all
}

// CheckSlugs returns the slugs of all checks in execution order.
func CheckSlugs() []string {
	all := make([]string, len(registry))
	for i, c := range registry {
		all[i] = c.Slug
	}
	return all
}

// clone returns a copy of c that shares no slices with it.
func (c *Check) clone() *Check {
	cp := *c
	cp.Types = append([]string(nil), c.Types...)
	return &cp
}

// SelectChecks returns the checks named by a comma-separated list of slugs.
// An empty list selects all checks. Slugs prefixed with "no-" are excluded
// from the selection, which starts from all checks if only exclusions are
// given.
func SelectChecks(list string) ([]*Check, error) {
	checks := Checks()
	if list = strings.TrimSpace(list); list == "" {
		return checks, nil
	}
	bySlug := make(map[string]*Check, len(checks))
	for _, c := range checks {
		bySlug[c.Slug] = c
	}
	include := make(map[string]bool)
	exclude := make(map[string]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		ex := strings.TrimPrefix(name, "no-")
		if bySlug[ex] == nil {
			return nil, errors.Errorf("unknown check %q", ex)
		}
		if ex == name {
			include[name] = true
			delete(exclude, name)
		} else {
			exclude[ex] = true
			delete(include, ex)
		}
	}
	var keep []*Check
	for _, c := range checks {
		if !exclude[c.Slug] && (len(include) == 0 || include[c.Slug]) {
			keep = append(keep, c)
		}
	}
	if len(keep) == 0 {
		return nil, errors.Errorf("no checks selected by %q", list)
	}
	return keep, nil
}

// CheckEncryption evaluates the encryption check for s. It always returns
// exactly one finding.
func (a *Auditor) CheckEncryption(s *Stream) Finding {
	return a.evaluate(&encryption, s)[0]
}

// CheckEnhancedMonitoring evaluates the enhanced monitoring check for s,
// returning one finding per monitoring configuration entry.
func (a *Auditor) CheckEnhancedMonitoring(s *Stream) []Finding {
	return a.evaluate(&enhancedMonitoring, s)
}

// evaluate runs check c against s and builds a finding for each verdict.
func (a *Auditor) evaluate(c *Check, s *Stream) []Finding {
	verdicts := c.Eval(s)
	if len(verdicts) == 0 {
		return nil
	}
	now := a.now().UTC()
	out := make([]Finding, len(verdicts))
	for i, ok := range verdicts {
		out[i] = a.newFinding(c, s, c.outcome(ok), now)
	}
	return out
}

// newFinding builds the finding for stream s with the given outcome.
func (a *Auditor) newFinding(c *Check, s *Stream, o *Outcome, now time.Time) Finding {
	f := Finding{
		ID:          FindingID(s.ARN, c.Slug),
		Check:       c.Slug,
		ProductARN:  a.ProductARN(),
		GeneratorID: s.ARN,
		AccountID:   a.ID,
		Types:       append([]string(nil), c.Types...),
		ObservedAt:  now,
		Severity:    o.Severity,
		Confidence:  Confidence,
		Title:       c.Title,
		Description: fmt.Sprintf(o.Desc, s.Name),
		Remediation: c.Remediation,
		Resource: Resource{
			Type:      ResourceType,
			ID:        s.ARN,
			Partition: a.Partition,
			Region:    a.Region,
			Details:   map[string]string{"StreamName": s.Name},
		},
		Status:      o.Status,
		RecordState: o.state(),
	}
	if a.opts.ProductName != "" {
		f.ProductFields = map[string]string{"Product Name": a.opts.ProductName}
	}
	return f
}
