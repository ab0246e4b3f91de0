package audit

import "time"

// SchemaVersion is the AWS Security Finding Format version of every finding.
const SchemaVersion = "2018-10-08"

// Confidence is the fixed confidence score attached to every finding.
const Confidence = 99

// ResourceType is the ASFF resource type of a Kinesis data stream.
const ResourceType = "AwsKinesisStream"

// Severity is the ASFF severity label of a finding.
type Severity string

const (
	SeverityHigh          Severity = "HIGH"
	SeverityLow           Severity = "LOW"
	SeverityInformational Severity = "INFORMATIONAL"
)

// Status is the compliance status of a finding.
type Status string

const (
	StatusPassed Status = "PASSED"
	StatusFailed Status = "FAILED"
)

// RecordState is the ASFF record state. Failed checks produce active findings
// and passed checks archive any earlier finding with the same ID.
type RecordState string

const (
	RecordActive   RecordState = "ACTIVE"
	RecordArchived RecordState = "ARCHIVED"
)

// Remediation points the reader at documentation for fixing a failed check.
type Remediation struct {
	Text string `json:"text" yaml:"text"`
	URL  string `json:"url" yaml:"url"`
}

// Resource describes the audited resource.
type Resource struct {
	Type      string            `json:"type" yaml:"type"`
	ID        string            `json:"id" yaml:"id"`
	Partition string            `json:"partition" yaml:"partition"`
	Region    string            `json:"region" yaml:"region"`
	Details   map[string]string `json:"details,omitempty" yaml:"details,omitempty"`
}

// Finding is one compliance record for one (resource, check) pair. Findings
// are values; once built they are handed to a Sink and never modified.
//
// The JSON and YAML encodings are this package's own dry-run format, not
// ASFF. ASFF converts a finding into the Security Hub payload.
type Finding struct {
	ID            string            `json:"id" yaml:"id"`
	Check         string            `json:"-" yaml:"-"` // Check slug
	ProductARN    string            `json:"product_arn" yaml:"product_arn"`
	GeneratorID   string            `json:"generator_id" yaml:"generator_id"`
	AccountID     string            `json:"account_id" yaml:"account_id"`
	Types         []string          `json:"types" yaml:"types"`
	ObservedAt    time.Time         `json:"observed_at" yaml:"observed_at"`
	Severity      Severity          `json:"severity" yaml:"severity"`
	Confidence    int32             `json:"confidence" yaml:"confidence"`
	Title         string            `json:"title" yaml:"title"`
	Description   string            `json:"description" yaml:"description"`
	Remediation   Remediation       `json:"remediation" yaml:"remediation"`
	ProductFields map[string]string `json:"product_fields,omitempty" yaml:"product_fields,omitempty"`
	Resource      Resource          `json:"resource" yaml:"resource"`
	Status        Status            `json:"compliance_status" yaml:"compliance_status"`
	RecordState   RecordState       `json:"record_state" yaml:"record_state"`
}

// FindingID returns the deterministic finding ID for a resource and check.
func FindingID(resourceARN, slug string) string {
	return resourceARN + "/" + slug
}

// Timestamp returns the observation time in the ISO-8601 UTC form expected by
// Security Hub.
func (f *Finding) Timestamp() string {
	return f.ObservedAt.UTC().Format(time.RFC3339Nano)
}
