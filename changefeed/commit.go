package changefeed

import (
	"slices"

	"github.com/goforj/attrcache"
)

// Commit is the change-set of one persisted write.
type Commit struct {
	subject attrcache.Subject
	fields  []string
}

// NewCommit records that fields of subject changed.
func NewCommit(subject attrcache.Subject, fields ...string) Commit {
	return Commit{subject: subject, fields: slices.Clone(fields)}
}

// Subject implements attrcache.Change.
func (c Commit) Subject() attrcache.Subject { return c.subject }

// Changed implements attrcache.Change.
func (c Commit) Changed(field string) bool {
	return slices.Contains(c.fields, field)
}

// Fields returns the changed field names.
func (c Commit) Fields() []string { return slices.Clone(c.fields) }

var _ attrcache.Change = Commit{}
