package model

// AppField names one optional metric column of an AppRecord.
type AppField int

const (
	FieldReqRate AppField = iota
	FieldRespTime
	FieldErrorRate
	FieldTotal24h
)

func (f AppField) String() string {
	switch f {
	case FieldReqRate:
		return "reqRate"
	case FieldRespTime:
		return "respTime"
	case FieldErrorRate:
		return "errorRate"
	case FieldTotal24h:
		return "total24h"
	default:
		return "unknown"
	}
}

// AppRecord is the joined per-application view across all metric kinds.
// A nil metric pointer means no sample for that application was present.
type AppRecord struct {
	Name      string   `json:"name"`
	Status    string   `json:"status"`
	ReqRate   *float64 `json:"reqRate,omitempty"`
	RespTime  *float64 `json:"respTime,omitempty"`
	ErrorRate *float64 `json:"errorRate,omitempty"`
	Total24h  *float64 `json:"total24h,omitempty"`
}

// Set stores v into the given field.
func (r *AppRecord) Set(f AppField, v float64) {
	switch f {
	case FieldReqRate:
		r.ReqRate = &v
	case FieldRespTime:
		r.RespTime = &v
	case FieldErrorRate:
		r.ErrorRate = &v
	case FieldTotal24h:
		r.Total24h = &v
	}
}

// Get returns the value of the given field and whether it is populated.
func (r AppRecord) Get(f AppField) (float64, bool) {
	var p *float64
	switch f {
	case FieldReqRate:
		p = r.ReqRate
	case FieldRespTime:
		p = r.RespTime
	case FieldErrorRate:
		p = r.ErrorRate
	case FieldTotal24h:
		p = r.Total24h
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Down reports whether the application's uptime status is "down".
func (r AppRecord) Down() bool {
	return r.Status == AppDown
}

// AppTable is an insertion-ordered mapping of application name to record.
// It is built fresh every refresh cycle and never shared across cycles.
type AppTable struct {
	order []string
	rows  map[string]*AppRecord
}

// NewAppTable returns an empty table.
func NewAppTable() *AppTable {
	return &AppTable{rows: make(map[string]*AppRecord)}
}

// Seed creates a record for name with the given status. It returns false and
// leaves the table unchanged when the name is already present.
func (t *AppTable) Seed(name, status string) bool {
	if _, ok := t.rows[name]; ok {
		return false
	}
	t.rows[name] = &AppRecord{Name: name, Status: status}
	t.order = append(t.order, name)
	return true
}

// Update sets field f on an existing record. Unknown names are ignored and
// reported with a false return.
func (t *AppTable) Update(name string, f AppField, v float64) bool {
	rec, ok := t.rows[name]
	if !ok {
		return false
	}
	rec.Set(f, v)
	return true
}

// Lookup returns a copy of the record for name.
func (t *AppTable) Lookup(name string) (AppRecord, bool) {
	if t == nil {
		return AppRecord{}, false
	}
	rec, ok := t.rows[name]
	if !ok {
		return AppRecord{}, false
	}
	return *rec, true
}

// Records returns copies of all records in insertion order.
func (t *AppTable) Records() []AppRecord {
	if t == nil {
		return nil
	}
	out := make([]AppRecord, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.rows[name])
	}
	return out
}

// Len returns the number of records.
func (t *AppTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.order)
}
