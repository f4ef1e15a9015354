// Package errclass classifies driver errors into the four categories the
// pool cares about: whether a failure means the physical connection is
// suspect (Communication, System) or whether the connection is still fine
// and the error should simply surface to the caller (NoData, Application).
package errclass

import "errors"

// Category is the result of classifying a driver error.
type Category int

const (
	// Application is the default: the connection is fine, the error is
	// the caller's problem (bad SQL, constraint violation, and so on).
	Application Category = iota
	// NoData signals an empty-result condition; the connection is fine.
	NoData
	// Communication means the physical connection is suspect and must
	// be retired.
	Communication
	// System means the physical connection is suspect and must be
	// retired.
	System
)

func (c Category) String() string {
	switch c {
	case NoData:
		return "NoData"
	case Communication:
		return "Communication"
	case System:
		return "System"
	default:
		return "Application"
	}
}

// Poisons reports whether a category means the owning connection must be
// retired rather than returned to the pool.
func (c Category) Poisons() bool {
	return c == Communication || c == System
}

// Coded is the shape a driver error must expose to be classified precisely.
// Errors that don't implement it are always classified Application unless
// an earlier link in the cause chain does.
type Coded interface {
	error
	// StateCode is a SQLSTATE-style string, e.g. "08003".
	StateCode() string
	// VendorCode is the driver-specific numeric code.
	VendorCode() int
	// ErrCategory is a coarse vendor category tag.
	ErrCategory() string
}

// CodeTables are the data half of the classifier: the actual code sets are
// not design, per the contract this package implements.
type CodeTables struct {
	// DisconnectionStateCodes are exact-match state codes that mean the
	// connection dropped, in addition to the "08" prefix rule.
	DisconnectionStateCodes map[string]struct{}
	// CommunicationVendorCodes are numeric codes meaning a communication
	// failure.
	CommunicationVendorCodes map[int]struct{}
	// CommunicationCategories are vendor category tags meaning
	// communication failure.
	CommunicationCategories map[string]struct{}
	// SystemStateCodes are exact-match state codes meaning a system
	// error (feature-not-supported, system-error, configuration-error).
	SystemStateCodes map[string]struct{}
	// SystemVendorCodes are numeric codes meaning a system error.
	SystemVendorCodes map[int]struct{}
	// SystemCategories are vendor category tags meaning a system error.
	SystemCategories map[string]struct{}
}

// DefaultCodeTables is a reasonable starting table modeled on common
// PostgreSQL/MySQL SQLSTATE conventions. Callers are free to supply their
// own via NewClassifier.
func DefaultCodeTables() CodeTables {
	return CodeTables{
		DisconnectionStateCodes: set("08000", "08003", "08006", "08001", "08004", "08007", "08P01"),
		CommunicationVendorCodes: setInt(2006, 2013, 2055), // MySQL: server gone away, lost connection, lost connection (extended)
		CommunicationCategories:  set("Timeout", "Recoverable", "InvalidAuthorization", "NonTransientConnection", "TransientConnection"),
		SystemStateCodes:         set("0A000", "58030", "F0000"),
		SystemVendorCodes:        setInt(1040, 1203), // MySQL: too many connections, user limit
		SystemCategories:         set("NonTransient", "TransactionRollback"),
	}
}

func set(vals ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

func setInt(vals ...int) map[int]struct{} {
	m := make(map[int]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return m
}

// Classifier walks an error's cause chain and maps it to a Category.
type Classifier struct {
	tables CodeTables
}

// NewClassifier builds a Classifier from an explicit code table.
func NewClassifier(tables CodeTables) *Classifier {
	return &Classifier{tables: tables}
}

// NewDefaultClassifier builds a Classifier using DefaultCodeTables.
func NewDefaultClassifier() *Classifier {
	return NewClassifier(DefaultCodeTables())
}

const maxCauseHops = 10

// Classify walks up to 10 links of err's cause chain and returns the first
// non-Application classification found, or Application if none.
func (c *Classifier) Classify(err error) Category {
	cur := err
	for hop := 0; cur != nil && hop < maxCauseHops; hop++ {
		if cat := c.classifyOne(cur); cat != Application {
			return cat
		}
		cur = errors.Unwrap(cur)
	}
	return Application
}

func (c *Classifier) classifyOne(err error) Category {
	coded, ok := err.(Coded)
	if !ok {
		return Application
	}

	state := coded.StateCode()
	if hasPrefix(state, "02") {
		return NoData
	}

	if hasPrefix(state, "08") {
		return Communication
	}
	if _, ok := c.tables.DisconnectionStateCodes[state]; ok {
		return Communication
	}
	if _, ok := c.tables.CommunicationVendorCodes[coded.VendorCode()]; ok {
		return Communication
	}
	if _, ok := c.tables.CommunicationCategories[coded.ErrCategory()]; ok {
		return Communication
	}

	if _, ok := c.tables.SystemStateCodes[state]; ok {
		return System
	}
	if _, ok := c.tables.SystemVendorCodes[coded.VendorCode()]; ok {
		return System
	}
	if _, ok := c.tables.SystemCategories[coded.ErrCategory()]; ok {
		return System
	}

	return Application
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
