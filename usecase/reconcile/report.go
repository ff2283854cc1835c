package reconcile

import "github.com/fastygo/agentsync/domain"

// Stats counts what happened to one entity kind during a reconciliation.
type Stats struct {
	Created     int `json:"created"`
	Updated     int `json:"updated"`
	Resurrected int `json:"resurrected"`
	Tombstoned  int `json:"tombstoned"`
	Unchanged   int `json:"unchanged"`
}

// Changed reports whether any record was written.
func (s Stats) Changed() bool {
	return s.Created+s.Updated+s.Resurrected+s.Tombstoned > 0
}

// Report is the outcome of reconciling one partner snapshot.
type Report struct {
	PartnerUUID string                       `json:"bpartner_uuid"`
	Stats       map[domain.EntityKind]*Stats `json:"stats"`
	Rejected    []*domain.RecordError        `json:"rejected,omitempty"`
}

func newReport(partnerUUID string) *Report {
	return &Report{PartnerUUID: partnerUUID, Stats: make(map[domain.EntityKind]*Stats)}
}

// For returns the counters of kind; the zero value if nothing was counted.
func (r *Report) For(kind domain.EntityKind) Stats {
	if r == nil || r.Stats[kind] == nil {
		return Stats{}
	}
	return *r.Stats[kind]
}

// Changed reports whether the reconciliation wrote anything.
func (r *Report) Changed() bool {
	if r == nil {
		return false
	}
	for _, s := range r.Stats {
		if s.Changed() {
			return true
		}
	}
	return false
}

func (r *Report) count(kind domain.EntityKind) *Stats {
	s, ok := r.Stats[kind]
	if !ok {
		s = &Stats{}
		r.Stats[kind] = s
	}
	return s
}

func (r *Report) reject(err *domain.RecordError) {
	r.Rejected = append(r.Rejected, err)
}
