package status

// Rule is one row of the decision table.
type Rule struct {
	Name   string
	When   func(Signals) bool
	Status Status
}

const RuleDefault = "default"

// Rules is evaluated top to bottom; the first match wins. Exceptions belong here
// as named rows, never as per-vehicle checks elsewhere.
var Rules = []Rule{
	{Name: "no-telemetry", When: func(s Signals) bool { return s.NoTelemetry }, Status: StatusOffline},
	{Name: "meter-on", When: func(s Signals) bool { return s.BusyMeterOn }, Status: StatusInJob},
	{Name: "dispatch-in-progress", When: func(s Signals) bool { return s.DispatchInProgress }, Status: StatusGoingToClient},
	{Name: "at-pickup", When: func(s Signals) bool { return s.AtPickup }, Status: StatusGoingToClient},
	{Name: "on-break", When: func(s Signals) bool { return s.OnBreak || s.Withdrawn }, Status: StatusOnBreak},
}

// Classify maps a signal tuple to exactly one status.
func Classify(s Signals) Status {
	st, _ := Explain(s)
	return st
}

// Explain is Classify that also names the rule that decided.
func Explain(s Signals) (Status, string) {
	for _, r := range Rules {
		if r.When(s) {
			return r.Status, r.Name
		}
	}
	return StatusAvailable, RuleDefault
}
