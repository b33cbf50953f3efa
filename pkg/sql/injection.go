package sql

import (
	"sort"

	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes one parameter value flagged by the
// injection screen.
type InjectionCheckResult struct {
	ParamName   string // parameter that failed the check
	ParamValue  any    // the offending value
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// checkParameter runs libinjection over a single value. Only strings are
// screened; numbers and booleans cannot carry SQL fragments. A nil result
// means the value is clean.
func checkParameter(name string, value any) *InjectionCheckResult {
	text, ok := value.(string)
	if !ok {
		return nil
	}

	if isSQLi, fingerprint := libinjection.IsSQLi(text); isSQLi {
		return &InjectionCheckResult{
			ParamName:   name,
			ParamValue:  value,
			Fingerprint: string(fingerprint),
		}
	}
	return nil
}

// CheckAllParameters screens every parameter value and returns a hit for
// each one that looks like SQL injection, sorted by parameter name so
// rejection messages and audit records are stable. A clean parameter map
// yields no hits.
//
// Values reach the database through driver-level parameter binding, so the
// screen is not what prevents injection; it exists to catch and audit LLM
// output that smuggles SQL into parameter values.
func CheckAllParameters(params map[string]any) []*InjectionCheckResult {
	var hits []*InjectionCheckResult
	for name, value := range params {
		if hit := checkParameter(name, value); hit != nil {
			hits = append(hits, hit)
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].ParamName < hits[j].ParamName })
	return hits
}
