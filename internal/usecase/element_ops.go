package usecase

import (
	"strings"
	"time"

	"github.com/gobwas/glob"

	"github.com/agent-tui/agent-tuid/internal/apperr"
	"github.com/agent-tui/agent-tuid/internal/vom"
)

// ClickInput targets one element by ref.
type ClickInput struct {
	SessionID string
	Ref       string
}

func (e *Executor) Click(in ClickInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	return sess.Click(in.Ref)
}

// DoubleClickInput targets one element by ref for a click-pause-click.
type DoubleClickInput struct {
	SessionID string
	Ref       string
}

func (e *Executor) DoubleClick(in DoubleClickInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	if err := sess.Click(in.Ref); err != nil {
		return err
	}
	time.Sleep(dblClickDelay)
	return sess.Click(in.Ref)
}

// FillInput focuses an element then types a replacement value into it.
type FillInput struct {
	SessionID string
	Ref       string
	Value     string
}

// Fill clicks the target to focus it, clears it with ctrl+a, then types
// the new value, mirroring how an operator replaces a field's contents.
func (e *Executor) Fill(in FillInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	if err := sess.Click(in.Ref); err != nil {
		return err
	}
	if err := sess.Keystroke("ctrl+a"); err != nil {
		return err
	}
	return sess.TypeText(in.Value)
}

// FindInput filters the current elements by role/name/text/focus.
type FindInput struct {
	SessionID string
	Role      string
	Name      string
	NameExact bool
	Text      string
	Focused   bool
	Nth       int
	HasNth    bool
}

// FoundElement is one matching element in Find/Count results.
type FoundElement struct {
	Ref        string
	Role       string
	Name       string
	Bounds     vom.Bounds
	Selected   bool
}

// FindOutput is the filtered element list plus its total count.
type FindOutput struct {
	Elements []FoundElement
	Count    int
}

func (e *Executor) Find(in FindInput) (FindOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return FindOutput{}, err
	}
	if err := sess.Update(); err != nil {
		return FindOutput{}, err
	}

	snap := sess.Snapshot(vom.SnapshotOptions{})
	matches := filterRefs(snap.Refs, in)

	if in.HasNth {
		if in.Nth < 0 || in.Nth >= len(matches) {
			return FindOutput{Elements: nil, Count: len(matches)}, nil
		}
		matches = matches[in.Nth : in.Nth+1]
	}

	return FindOutput{Elements: matches, Count: len(matches)}, nil
}

// CountInput filters the current elements the same way Find does, minus
// focus/exact-match/nth-selection, since a count only needs a tally.
type CountInput struct {
	SessionID string
	Role      string
	Name      string
	Text      string
}

// CountOutput is the number of elements matching the filter.
type CountOutput struct {
	Count int
}

func (e *Executor) Count(in CountInput) (CountOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return CountOutput{}, err
	}
	if err := sess.Update(); err != nil {
		return CountOutput{}, err
	}
	snap := sess.Snapshot(vom.SnapshotOptions{})
	matches := filterRefs(snap.Refs, FindInput{Role: in.Role, Name: in.Name, Text: in.Text})
	return CountOutput{Count: len(matches)}, nil
}

func filterRefs(refs vom.RefMap, in FindInput) []FoundElement {
	out := make([]FoundElement, 0, len(refs.Refs))
	for ref, el := range refs.Refs {
		if in.Role != "" && el.Role != in.Role {
			continue
		}
		if in.Name != "" && !matchesName(el.Name, in.Name, in.NameExact) {
			continue
		}
		if in.Text != "" && !strings.Contains(strings.ToLower(el.Name), strings.ToLower(in.Text)) {
			continue
		}
		out = append(out, FoundElement{Ref: ref, Role: el.Role, Name: el.Name, Bounds: el.Bounds, Selected: el.Selected})
	}
	return out
}

// matchesName applies one of three strategies: exact match, glob pattern
// (when pattern contains a wildcard character), or case-insensitive
// substring — the same ordering of preference a human would reach for.
func matchesName(name, pattern string, exact bool) bool {
	if exact {
		return name == pattern
	}
	if strings.ContainsAny(pattern, "*?[") {
		g, err := glob.Compile(pattern)
		if err == nil {
			return g.Match(name)
		}
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(pattern))
}

// ScrollInput moves the viewport in one arrow-key direction, repeated
// amount times — the only "scrolling" a PTY-backed terminal offers.
type ScrollInput struct {
	SessionID string
	Direction string
	Amount    int
}

// ScrollOutput confirms the direction and amount applied.
type ScrollOutput struct {
	Direction string
	Amount    int
}

func (e *Executor) Scroll(in ScrollInput) (ScrollOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return ScrollOutput{}, err
	}
	amount := in.Amount
	if amount <= 0 {
		amount = 1
	}

	var key string
	switch strings.ToLower(in.Direction) {
	case "up":
		key = "up"
	case "down":
		key = "down"
	case "left":
		key = "left"
	case "right":
		key = "right"
	default:
		return ScrollOutput{}, apperr.New(apperr.InvalidKey, "unknown scroll direction: "+in.Direction)
	}

	for i := 0; i < amount; i++ {
		if err := sess.Keystroke(key); err != nil {
			return ScrollOutput{}, err
		}
	}
	return ScrollOutput{Direction: in.Direction, Amount: amount}, nil
}

// ScrollIntoViewInput scrolls down repeatedly, checking after each step
// whether the target ref has come into view.
type ScrollIntoViewInput struct {
	SessionID string
	Ref       string
}

// ScrollIntoViewOutput reports how many scroll steps were needed.
type ScrollIntoViewOutput struct {
	Success       bool
	ScrollsNeeded int
	Message       string
}

const maxScrollIntoViewSteps = 50

func (e *Executor) ScrollIntoView(in ScrollIntoViewInput) (ScrollIntoViewOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return ScrollIntoViewOutput{}, err
	}

	if _, err := resolveElement(sess, in.Ref); err == nil {
		return ScrollIntoViewOutput{Success: true, ScrollsNeeded: 0}, nil
	}

	for step := 1; step <= maxScrollIntoViewSteps; step++ {
		if err := sess.Keystroke("down"); err != nil {
			return ScrollIntoViewOutput{}, err
		}
		if err := sess.Update(); err != nil {
			return ScrollIntoViewOutput{}, err
		}
		if _, err := resolveElement(sess, in.Ref); err == nil {
			return ScrollIntoViewOutput{Success: true, ScrollsNeeded: step}, nil
		}
	}

	return ScrollIntoViewOutput{Success: false, Message: "Element not found after scrolling"}, nil
}

// ElementRefInput is the shared shape for read-only single-element state
// queries (get_text, get_value, is_visible, is_focused, is_enabled,
// is_checked).
type ElementRefInput struct {
	SessionID string
	Ref       string
}

type TextOutput struct {
	Text  string
	Found bool
}

func (e *Executor) GetText(in ElementRefInput) (TextOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return TextOutput{}, err
	}
	el, err := resolveElement(sess, in.Ref)
	if err != nil {
		return TextOutput{Found: false}, nil
	}
	return TextOutput{Text: el.Name, Found: true}, nil
}

type ValueOutput struct {
	Value string
	Found bool
}

// GetValue returns an input element's current text. Non-text roles
// (buttons, tabs, panels) have no independent value; their label is
// returned instead of an empty string, matching the reference model's
// distinction between an element that is blank and one with no concept
// of a value at all only in name, not in this simplified classifier.
func (e *Executor) GetValue(in ElementRefInput) (ValueOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return ValueOutput{}, err
	}
	el, err := resolveElement(sess, in.Ref)
	if err != nil {
		return ValueOutput{Found: false}, nil
	}
	return ValueOutput{Value: el.Name, Found: true}, nil
}

type VisibleOutput struct {
	Visible bool
}

func (e *Executor) IsVisible(in ElementRefInput) (VisibleOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return VisibleOutput{}, err
	}
	_, err = resolveElement(sess, in.Ref)
	return VisibleOutput{Visible: err == nil}, nil
}

type FocusedOutput struct {
	Focused bool
	Found   bool
}

func (e *Executor) IsFocused(in ElementRefInput) (FocusedOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return FocusedOutput{}, err
	}
	el, err := resolveElement(sess, in.Ref)
	if err != nil {
		return FocusedOutput{Found: false}, nil
	}
	cur := sess.Cursor()
	focused := cur.Visible && cur.Row == el.Bounds.Y && cur.Col >= el.Bounds.X && cur.Col < el.Bounds.X+el.Bounds.Width
	return FocusedOutput{Focused: focused, Found: true}, nil
}

type EnabledOutput struct {
	Enabled bool
	Found   bool
}

// IsEnabled always reports true for any resolvable element: the
// classifier has no notion of a disabled cluster to key off of.
func (e *Executor) IsEnabled(in ElementRefInput) (EnabledOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return EnabledOutput{}, err
	}
	_, err = resolveElement(sess, in.Ref)
	if err != nil {
		return EnabledOutput{Found: false}, nil
	}
	return EnabledOutput{Enabled: true, Found: true}, nil
}

type CheckedOutput struct {
	Checked bool
	Found   bool
	Message string
}

func (e *Executor) IsChecked(in ElementRefInput) (CheckedOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return CheckedOutput{}, err
	}
	el, err := resolveElement(sess, in.Ref)
	if err != nil {
		return CheckedOutput{Found: false}, nil
	}
	if el.Role != "checkbox" {
		return CheckedOutput{Found: true, Message: "element is not a checkbox"}, nil
	}
	return CheckedOutput{Checked: el.Selected, Found: true}, nil
}

// GetFocusedOutput is the currently focused element, if any.
type GetFocusedOutput struct {
	Ref   string
	Role  string
	Name  string
	Found bool
}

func (e *Executor) GetFocused(sessionID string) (GetFocusedOutput, error) {
	sess, err := e.resolve(sessionID)
	if err != nil {
		return GetFocusedOutput{}, err
	}
	if err := sess.Update(); err != nil {
		return GetFocusedOutput{}, err
	}
	snap := sess.Snapshot(vom.SnapshotOptions{})
	cur := sess.Cursor()
	if !cur.Visible {
		return GetFocusedOutput{Found: false}, nil
	}
	for ref, el := range snap.Refs.Refs {
		if cur.Row == el.Bounds.Y && cur.Col >= el.Bounds.X && cur.Col < el.Bounds.X+el.Bounds.Width {
			return GetFocusedOutput{Ref: ref, Role: el.Role, Name: el.Name, Found: true}, nil
		}
	}
	return GetFocusedOutput{Found: false}, nil
}

// GetTitleOutput reports a session's command as its window title.
type GetTitleOutput struct {
	SessionID string
	Title     string
}

func (e *Executor) GetTitle(sessionID string) (GetTitleOutput, error) {
	sess, err := e.resolve(sessionID)
	if err != nil {
		return GetTitleOutput{}, err
	}
	return GetTitleOutput{SessionID: sess.ID, Title: sess.Command}, nil
}

// FocusInput/ClearInput/SelectAllInput each verify the ref resolves,
// then send one fixed control sequence.
type FocusInput struct {
	SessionID string
	Ref       string
}

func (e *Executor) Focus(in FocusInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	if _, err := resolveElement(sess, in.Ref); err != nil {
		return err
	}
	return sess.TypeText("\t")
}

type ClearInput struct {
	SessionID string
	Ref       string
}

func (e *Executor) Clear(in ClearInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	if _, err := resolveElement(sess, in.Ref); err != nil {
		return err
	}
	return sess.TypeText("\x15")
}

type SelectAllInput struct {
	SessionID string
	Ref       string
}

func (e *Executor) SelectAll(in SelectAllInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	if _, err := resolveElement(sess, in.Ref); err != nil {
		return err
	}
	return sess.TypeText("\x01")
}

// ToggleInput flips (or sets) a checkbox/radio element's checked state.
type ToggleInput struct {
	SessionID string
	Ref       string
	State     *bool
}

// ToggleOutput reports the checked state after the toggle.
type ToggleOutput struct {
	Checked bool
}

func (e *Executor) Toggle(in ToggleInput) (ToggleOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return ToggleOutput{}, err
	}
	el, err := resolveElement(sess, in.Ref)
	if err != nil {
		return ToggleOutput{}, err
	}
	if el.Role != "checkbox" && el.Role != "radio" {
		return ToggleOutput{}, wrongType(in.Ref, el.Role, "checkbox or radio")
	}

	shouldToggle := in.State == nil || *in.State != el.Selected
	if shouldToggle {
		if err := sess.TypeText(" "); err != nil {
			return ToggleOutput{}, err
		}
		return ToggleOutput{Checked: !el.Selected}, nil
	}
	return ToggleOutput{Checked: el.Selected}, nil
}

// SelectInput names an option to choose within a "select" element.
type SelectInput struct {
	SessionID string
	Ref       string
	Option    string
}

func (e *Executor) Select(in SelectInput) error {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return err
	}
	el, err := resolveElement(sess, in.Ref)
	if err != nil {
		return err
	}
	if el.Role != "select" {
		return wrongType(in.Ref, el.Role, "select")
	}
	if err := sess.TypeText(in.Option); err != nil {
		return err
	}
	return sess.Keystroke("enter")
}

// MultiselectInput names multiple options to toggle on, one at a time.
type MultiselectInput struct {
	SessionID string
	Ref       string
	Options   []string
}

// MultiselectOutput echoes the options applied.
type MultiselectOutput struct {
	SelectedOptions []string
}

// Multiselect walks each option, typing it, pausing, toggling it with a
// space, then clearing the typeahead buffer with ctrl+u before moving to
// the next — matching a multi-select widget's typeahead-then-toggle UX.
func (e *Executor) Multiselect(in MultiselectInput) (MultiselectOutput, error) {
	sess, err := e.resolve(in.SessionID)
	if err != nil {
		return MultiselectOutput{}, err
	}
	if _, err := resolveElement(sess, in.Ref); err != nil {
		return MultiselectOutput{}, err
	}

	for _, option := range in.Options {
		if err := sess.TypeText(option); err != nil {
			return MultiselectOutput{}, err
		}
		time.Sleep(dblClickDelay)
		if err := sess.TypeText(" "); err != nil {
			return MultiselectOutput{}, err
		}
		if err := sess.TypeText("\x15"); err != nil {
			return MultiselectOutput{}, err
		}
	}
	if err := sess.Keystroke("enter"); err != nil {
		return MultiselectOutput{}, err
	}
	return MultiselectOutput{SelectedOptions: in.Options}, nil
}
