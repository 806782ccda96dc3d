package esi

import (
	"fmt"
	"strings"
	"time"
)

// Rule names reported in Result.Rule.
const (
	RuleImmediate = "immediate"
	RuleHighRisk  = "high_risk"
	RuleResources = "resources"
)

const severePainThreshold = 9

// Evidence is computed once per Input and shared by every rule.
type Evidence struct {
	Input
	ComplaintLower string
	Vitals         VitalsAssessment
}

// NewEvidence derives rule evidence from an input.
func NewEvidence(in Input) *Evidence {
	return &Evidence{
		Input:          in,
		ComplaintLower: strings.ToLower(in.ChiefComplaint),
		Vitals:         EvaluateVitals(in.Vitals),
	}
}

// Decision is a rule outcome. Resources is set only by rules that estimate
// resource use.
type Decision struct {
	Level     Level
	Rule      string
	Rationale []string
	Resources *int
}

// Rule inspects the evidence and either decides a level or passes.
type Rule func(ev *Evidence) (Decision, bool)

// ImmediateRule decides ESI 1 on a life-threat phrase or any critical-zone
// vital sign.
func ImmediateRule(ev *Evidence) (Decision, bool) {
	var why []string
	if p, ok := ImmediateVocabulary.Match(ev.ComplaintLower); ok {
		why = append(why, fmt.Sprintf("Life-threatening presentation: %q (%s)", p.Text, p.Category))
	}
	why = append(why, ev.Vitals.Critical...)
	if len(why) == 0 {
		return Decision{}, false
	}
	return Decision{Level: Level1, Rule: RuleImmediate, Rationale: why}, true
}

// HighRiskRule decides ESI 2 on a high-risk phrase, a danger-zone vital sign,
// severe pain or arrival by ambulance or stretcher.
func HighRiskRule(ev *Evidence) (Decision, bool) {
	var why []string
	if p, ok := HighRiskVocabulary.Match(ev.ComplaintLower); ok {
		why = append(why, fmt.Sprintf("High-risk presentation: %q (%s)", p.Text, p.Category))
	}
	why = append(why, ev.Vitals.Danger...)
	if ev.PainScore >= severePainThreshold {
		why = append(why, fmt.Sprintf("Severe pain %d/10", ev.PainScore))
	}
	if ev.Arrival == ArrivalAmbulance || ev.Arrival == ArrivalStretcher {
		why = append(why, fmt.Sprintf("Arrival by %s", ev.Arrival))
	}
	if len(why) == 0 {
		return Decision{}, false
	}
	return Decision{Level: Level2, Rule: RuleHighRisk, Rationale: why}, true
}

// ResourceRule maps predicted resource use to ESI 3, 4 or 5. It always
// decides.
func ResourceRule(ev *Evidence) (Decision, bool) {
	n := PredictResources(ev.ComplaintLower, ev.PainScore)

	d := Decision{Rule: RuleResources, Resources: &n}
	switch {
	case n >= ResourcesMany:
		d.Level = Level3
		d.Rationale = []string{"Two or more resources expected"}
	case n == ResourcesOne:
		d.Level = Level4
		d.Rationale = []string{"One resource expected"}
	default:
		d.Level = Level5
		d.Rationale = []string{"No resources expected"}
	}
	return d, true
}

// DefaultRules is the ESI v4 decision order.
func DefaultRules() []Rule {
	return []Rule{ImmediateRule, HighRiskRule, ResourceRule}
}

// Classifier evaluates rules in order and stops at the first decision.
type Classifier struct {
	rules []Rule
	now   func() time.Time
}

// NewClassifier creates a classifier using the default rules. A nil clock
// means time.Now.
func NewClassifier(now func() time.Time) *Classifier {
	return NewClassifierWithRules(DefaultRules(), now)
}

// NewClassifierWithRules creates a classifier with a custom rule order.
func NewClassifierWithRules(rules []Rule, now func() time.Time) *Classifier {
	if now == nil {
		now = time.Now
	}
	return &Classifier{rules: rules, now: now}
}

// Classify returns exactly one result for any input. If no rule decides, or
// the deciding rule returns a level outside 1..5, the input is classified ESI 5.
func (c *Classifier) Classify(in Input) Result {
	ev := NewEvidence(in)

	none := ResourcesNone
	d := Decision{Level: Level5, Rule: RuleResources, Rationale: []string{"No rule matched"}, Resources: &none}
	for _, rule := range c.rules {
		if got, ok := rule(ev); ok {
			d = got
			break
		}
	}
	if !d.Level.Valid() {
		d = Decision{
			Level:     Level5,
			Rule:      d.Rule,
			Rationale: []string{fmt.Sprintf("Rule %q returned invalid level %d", d.Rule, int(d.Level))},
			Resources: &none,
		}
	}

	info := Metadata(d.Level)
	return Result{
		Level:               d.Level,
		Label:               info.Label,
		Colour:              info.Colour,
		TargetPhysicianTime: info.TargetPhysicianTime,
		Area:                info.Area,
		Rationale:           d.Rationale,
		ImmediateActions:    info.Actions,
		ResourcesExpected:   d.Resources,
		Rule:                d.Rule,
		ComputedAt:          c.now(),
	}
}
