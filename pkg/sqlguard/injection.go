package sqlguard

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a parameter value that matched a SQL
// injection pattern.
type InjectionCheckResult struct {
	IsSQLi      bool   // true if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
	ParamIndex  int    // zero-based position of the offending parameter
	ParamValue  any    // the value that was checked
}

// CheckParameterForInjection uses libinjection to detect SQL injection
// patterns in a bound parameter value.
//
// Only string values are checked. Numbers, booleans, and other types cannot
// carry injection payloads and return nil.
func CheckParameterForInjection(index int, value any) *InjectionCheckResult {
	strValue, ok := value.(string)
	if !ok {
		return nil
	}

	isSQLi, fingerprint := libinjection.IsSQLi(strValue)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
			ParamIndex:  index,
			ParamValue:  value,
		}
	}

	return nil
}

// CheckAllParameters screens every bound parameter and returns a result for
// each one that matched an injection pattern. An empty slice means all
// parameters are clean.
func CheckAllParameters(params []any) []*InjectionCheckResult {
	var results []*InjectionCheckResult
	for i, value := range params {
		if result := CheckParameterForInjection(i, value); result != nil {
			results = append(results, result)
		}
	}
	return results
}
