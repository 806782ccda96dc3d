package esi

import "strings"

// Phrase is one vocabulary entry.
type Phrase struct {
	Text     string
	Category string
}

// Vocabulary is an ordered phrase table. Order matters: Match reports the
// first entry that hits.
type Vocabulary []Phrase

// Match returns the first phrase whose text is a substring of lower, which
// must already be lower-cased. Matching is plain substring containment, not
// tokenized: "heatstroke" matches "stroke", and unrelated words containing a
// vocabulary phrase will match too.
func (v Vocabulary) Match(lower string) (Phrase, bool) {
	for _, p := range v {
		if strings.Contains(lower, p.Text) {
			return p, true
		}
	}
	return Phrase{}, false
}

// ImmediateVocabulary lists presentations needing immediate life-saving
// intervention (ESI 1).
var ImmediateVocabulary = Vocabulary{
	{"cardiac arrest", "cardiovascular"},
	{"no pulse", "cardiovascular"},
	{"pulseless", "cardiovascular"},
	{"not breathing", "airway"},
	{"stopped breathing", "airway"},
	{"apneic", "airway"},
	{"choking", "airway"},
	{"airway obstruction", "airway"},
	{"severe respiratory distress", "breathing"},
	{"agonal breathing", "breathing"},
	{"active seizure", "neurological"},
	{"status epilepticus", "neurological"},
	{"unresponsive", "neurological"},
	{"unconscious", "neurological"},
	{"anaphylactic shock", "circulation"},
	{"septic shock", "circulation"},
	{"massive bleeding", "circulation"},
	{"uncontrolled bleeding", "circulation"},
	{"exsanguinat", "circulation"},
	{"gunshot to chest", "trauma"},
	{"gunshot to head", "trauma"},
}

// HighRiskVocabulary lists high-risk presentations (ESI 2).
var HighRiskVocabulary = Vocabulary{
	{"stroke", "neurological"},
	{"facial droop", "neurological"},
	{"slurred speech", "neurological"},
	{"worst headache", "neurological"},
	{"thunderclap headache", "neurological"},
	{"altered mental status", "neurological"},
	{"new confusion", "neurological"},
	{"crushing chest pain", "cardiovascular"},
	{"chest pain radiating", "cardiovascular"},
	{"chest pressure", "cardiovascular"},
	{"aortic dissection", "cardiovascular"},
	{"anaphylaxis", "allergy"},
	{"throat swelling", "allergy"},
	{"suicidal with plan", "psychiatric"},
	{"homicidal", "psychiatric"},
	{"overdose", "toxicology"},
	{"vomiting blood", "gastrointestinal"},
	{"coughing up blood", "respiratory"},
	{"sepsis", "infection"},
	{"neutropenic fever", "infection"},
	{"ectopic", "obstetric"},
	{"testicular torsion", "genitourinary"},
	{"severe burn", "trauma"},
	{"open fracture", "trauma"},
	{"high-speed collision", "trauma"},
}

// MultiResourceVocabulary lists complaints expected to need two or more ED
// resources.
var MultiResourceVocabulary = Vocabulary{
	{"chest pain", "cardiovascular"},
	{"palpitations", "cardiovascular"},
	{"syncope", "cardiovascular"},
	{"fainted", "cardiovascular"},
	{"shortness of breath", "respiratory"},
	{"difficulty breathing", "respiratory"},
	{"abdominal pain", "gastrointestinal"},
	{"vomiting and diarrh", "gastrointestinal"},
	{"dehydrat", "gastrointestinal"},
	{"flank pain", "genitourinary"},
	{"kidney stone", "genitourinary"},
	{"head injury", "trauma"},
	{"fracture", "trauma"},
	{"dislocat", "trauma"},
	{"fall from", "trauma"},
	{"pregnan", "obstetric"},
	{"pneumonia", "respiratory"},
}

// SingleResourceVocabulary lists complaints expected to need one ED resource.
var SingleResourceVocabulary = Vocabulary{
	{"sprain", "musculoskeletal"},
	{"twisted ankle", "musculoskeletal"},
	{"laceration", "wound"},
	{"wound", "wound"},
	{"foreign body", "wound"},
	{"minor burn", "wound"},
	{"urinary", "genitourinary"},
	{"burning on urination", "genitourinary"},
	{"eye injury", "ophthalmic"},
	{"cough with fever", "respiratory"},
	{"ankle pain", "musculoskeletal"},
	{"wrist pain", "musculoskeletal"},
}

// DetectImmediate matches the complaint against ImmediateVocabulary.
func DetectImmediate(complaint string) (Phrase, bool) {
	return ImmediateVocabulary.Match(strings.ToLower(complaint))
}

// DetectHighRisk matches the complaint against HighRiskVocabulary.
func DetectHighRisk(complaint string) (Phrase, bool) {
	return HighRiskVocabulary.Match(strings.ToLower(complaint))
}
