package audit

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/linnemanlabs/edtriage/internal/esi"
)

// TicketWidth is the column width of a rendered ticket.
const TicketWidth = 48

// RenderTicket renders the record as a fixed-width text ticket for the
// wristband printer and the paper chart. No line exceeds TicketWidth.
func RenderTicket(r *Record) string {
	var t ticket

	t.rule('=')
	t.center("EMERGENCY DEPARTMENT TRIAGE")
	t.rule('=')
	t.field("Record", r.ID)
	t.field("Patient", r.PatientID)
	t.field("Time", r.RecordedAt.Format("2006-01-02 15:04 MST"))
	t.rule('-')

	res := r.Result
	t.line(fmt.Sprintf("%s  %s (%s)", res.Level, res.Label, res.Colour))
	t.field("Target", res.TargetPhysicianTime)
	t.field("Area", res.Area)
	if res.ResourcesExpected != nil {
		t.field("Resources", strconv.Itoa(*res.ResourcesExpected))
	}
	t.rule('-')

	in := r.Input
	t.line("Complaint:")
	t.wrap("  ", "  ", in.ChiefComplaint)
	t.line(vitalsLine(in.Vitals))
	arrival := string(in.Arrival)
	if arrival == "" {
		arrival = "-"
	}
	t.line(fmt.Sprintf("Pain: %d/10   Arrival: %s", in.PainScore, arrival))

	if len(res.Rationale) > 0 {
		t.rule('-')
		t.line("Rationale:")
		for _, why := range res.Rationale {
			t.wrap(" - ", "   ", why)
		}
	}
	if len(res.ImmediateActions) > 0 {
		t.line("Immediate actions:")
		for _, a := range res.ImmediateActions {
			t.wrap(" [ ] ", "     ", a)
		}
	}

	t.rule('-')
	cl := r.Checklist
	t.line(fmt.Sprintf("Allergies verified: %s   Wristband: %s", yesNo(cl.AllergiesVerified), yesNo(cl.WristbandApplied)))
	if cl.Notes != "" {
		t.wrap("Notes: ", "       ", cl.Notes)
	}
	if cl.RecordedBy != "" {
		t.field("Recorded by", cl.RecordedBy)
	}
	t.rule('=')

	return t.String()
}

type ticket struct {
	b strings.Builder
}

func (t *ticket) String() string { return t.b.String() }

func (t *ticket) line(s string) {
	if len([]rune(s)) > TicketWidth {
		t.wrap("", "", s)
		return
	}
	t.b.WriteString(strings.TrimRight(s, " "))
	t.b.WriteByte('\n')
}

func (t *ticket) rule(c byte) {
	t.b.WriteString(strings.Repeat(string(c), TicketWidth))
	t.b.WriteByte('\n')
}

func (t *ticket) center(s string) {
	pad := (TicketWidth - len(s)) / 2
	if pad < 0 {
		pad = 0
	}
	t.line(strings.Repeat(" ", pad) + s)
}

func (t *ticket) field(label, value string) {
	if value == "" {
		value = "-"
	}
	prefix := fmt.Sprintf("%-12s", label+":")
	t.wrap(prefix, strings.Repeat(" ", len(prefix)), value)
}

// wrap writes s word-wrapped to TicketWidth. first prefixes the first line,
// rest every continuation line. Words longer than a line are hard-broken.
func (t *ticket) wrap(first, rest, s string) {
	prefix := first
	cur := ""
	flush := func() {
		t.b.WriteString(strings.TrimRight(prefix+cur, " "))
		t.b.WriteByte('\n')
		prefix, cur = rest, ""
	}

	words := strings.Fields(s)
	if len(words) == 0 {
		flush()
		return
	}
	for _, w := range words {
		for {
			room := TicketWidth - len([]rune(prefix))
			if cur != "" {
				if len([]rune(cur))+1+len([]rune(w)) <= room {
					cur += " " + w
					break
				}
				flush()
				continue
			}
			if rw := []rune(w); len(rw) > room {
				cur = string(rw[:room])
				w = string(rw[room:])
				flush()
				continue
			}
			cur = w
			break
		}
	}
	flush()
}

func vitalsLine(v esi.VitalSigns) string {
	bp := "-"
	if v.SystolicBP != nil || v.DiastolicBP != nil {
		bp = intOrDash(v.SystolicBP) + "/" + intOrDash(v.DiastolicBP)
	}
	temp := "-"
	if v.Temperature != nil {
		temp = strconv.FormatFloat(*v.Temperature, 'f', 1, 64)
	}
	return fmt.Sprintf("HR %s  BP %s  RR %s  SpO2 %s  T %s  GCS %s",
		intOrDash(v.HeartRate), bp, intOrDash(v.RespiratoryRate),
		intOrDash(v.SpO2), temp, intOrDash(v.GCS))
}

func intOrDash(p *int) string {
	if p == nil {
		return "-"
	}
	return strconv.Itoa(*p)
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
