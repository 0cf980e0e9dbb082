package conversation

import (
	"strconv"
	"strings"
	"time"

	"github.com/wolfman30/pharmastic-ai-platform/internal/customers"
	"github.com/wolfman30/pharmastic-ai-platform/internal/nlu"
	"github.com/wolfman30/pharmastic-ai-platform/internal/orders"
	"github.com/wolfman30/pharmastic-ai-platform/internal/session"
)

const (
	minAge = 1
	maxAge = 150

	fallbackQuantity = 1
	fallbackUnit     = "units"
)

// turnInput is everything a transition may look at. The engine gathers it
// before dispatching so the transitions themselves do no I/O.
type turnInput struct {
	userID     string
	state      session.State
	text       string
	profile    *customers.Profile
	extraction nlu.Extraction
	recent     []orders.Order
	now        time.Time
}

// turnEnv supplies the generated values the order builder needs.
type turnEnv struct {
	baseLanguage string
	unitPrice    func(medicine string) int64
	newOrderID   func() string
}

// outcome is the result of one transition. language is the target for
// translating reply; an empty language sends it as written.
type outcome struct {
	next     session.State
	effects  []effect
	reply    Reply
	language string
}

// decide dispatches on the current step.
func decide(in turnInput, env turnEnv) outcome {
	switch st := in.state.(type) {
	case nil, session.NeedsProfileCheck:
		if in.profile == nil {
			return outcome{next: session.AwaitingName{}, reply: welcomeReply()}
		}
		return mainMenu(in, env)
	case session.AwaitingName:
		return awaitingName(in)
	case session.AwaitingGender:
		return awaitingGender(st, in)
	case session.AwaitingAge:
		return awaitingAge(st, in, env)
	case session.MainMenu:
		return mainMenu(in, env)
	case session.AwaitingQuantity:
		return awaitingQuantity(st, in, env)
	case session.AwaitingConfirmation:
		return awaitingConfirmation(st, in)
	default:
		return outcome{next: session.NeedsProfileCheck{}, reply: fallbackReply()}
	}
}

func awaitingName(in turnInput) outcome {
	name := strings.TrimSpace(in.text)
	if name == "" {
		return outcome{next: session.AwaitingName{}, reply: askNameReply()}
	}
	return outcome{
		next:  session.AwaitingGender{Name: name},
		reply: askGenderReply(name),
	}
}

func awaitingGender(st session.AwaitingGender, in turnInput) outcome {
	gender := strings.TrimSpace(in.text)
	if gender == "" {
		return outcome{next: st, reply: repeatGenderReply()}
	}
	return outcome{
		next:  session.AwaitingAge{Name: st.Name, Gender: gender},
		reply: askAgeReply(),
	}
}

func awaitingAge(st session.AwaitingAge, in turnInput, env turnEnv) outcome {
	if strings.TrimSpace(st.Name) == "" {
		// Nothing to register without a name; restart onboarding at the name prompt.
		return outcome{next: session.AwaitingName{}, reply: askNameReply()}
	}
	age, ok := parseAge(in.text)
	if !ok {
		return outcome{next: st, reply: invalidAgeReply()}
	}
	profile := customers.Profile{
		UserID:            in.userID,
		Name:              st.Name,
		Gender:            st.Gender,
		Age:               age,
		PreferredLanguage: env.baseLanguage,
		MedicationHistory: map[string]customers.MedicationEntry{},
		RegisteredAt:      in.now,
	}
	return outcome{
		next:    session.MainMenu{},
		effects: []effect{createProfile{profile: profile}},
		reply:   profileSavedReply(st.Name),
	}
}

// parseAge keeps only the digits of text and accepts 1..150.
func parseAge(text string) (int, bool) {
	var digits strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}
	age, err := strconv.Atoi(digits.String())
	if err != nil || age < minAge || age > maxAge {
		return 0, false
	}
	return age, true
}

func mainMenu(in turnInput, env turnEnv) outcome {
	ext := in.extraction
	lang := replyLanguage(in.profile, ext, env.baseLanguage)
	out := outcome{next: session.MainMenu{}, language: lang}

	if in.profile != nil && !ext.Degraded && !nlu.IsBaseLanguage(lang, env.baseLanguage) &&
		!strings.EqualFold(in.profile.PreferredLanguage, lang) {
		out.effects = append(out.effects, updateLanguage{language: lang})
	}

	switch {
	case ext.Intent == nlu.IntentGreeting:
		out.reply = greetingReply()
	case wantsHistory(in.text, ext) && !(ext.Intent == nlu.IntentOrder && ext.HasMedicine()):
		out.reply = historyReply(in.recent)
	case ext.HasMedicine():
		medicine := strings.TrimSpace(ext.Medicine)
		if !ext.HasQuantity() {
			out.next = session.AwaitingQuantity{
				Medicine:     medicine,
				Dosage:       ext.DosageFrequency,
				Prescription: ext.PrescriptionRequired,
				Language:     lang,
			}
			out.reply = askQuantityReply(medicine)
			return out
		}
		built := buildConfirmation(pendingRequest{
			medicine:     medicine,
			quantity:     ext.Quantity,
			unit:         unitOrDefault(ext.Unit),
			dosage:       ext.DosageFrequency,
			prescription: ext.PrescriptionRequired,
			language:     lang,
		}, env)
		built.effects = append(out.effects, built.effects...)
		return built
	default:
		out.reply = fallbackReply()
	}
	return out
}

// replyLanguage is the detected language, or the profile's preferred language
// when extraction degraded to the base-language default.
func replyLanguage(profile *customers.Profile, ext nlu.Extraction, base string) string {
	if ext.Degraded && profile != nil && !nlu.IsBaseLanguage(profile.PreferredLanguage, base) {
		return profile.PreferredLanguage
	}
	return ext.Language
}

// wantsHistory is shared with the engine, which loads recent orders only when
// this returns true.
func wantsHistory(text string, ext nlu.Extraction) bool {
	return ext.Intent == nlu.IntentHistory || MentionsHistory(text)
}

func awaitingQuantity(st session.AwaitingQuantity, in turnInput, env turnEnv) outcome {
	ext := in.extraction
	quantity, unit := fallbackQuantity, fallbackUnit
	if ext.HasQuantity() {
		quantity, unit = ext.Quantity, unitOrDefault(ext.Unit)
	}
	dosage := st.Dosage
	if dosage == "" {
		dosage = ext.DosageFrequency
	}
	prescription := st.Prescription
	if prescription == "" {
		prescription = ext.PrescriptionRequired
	}
	lang := st.Language
	if lang == "" {
		lang = replyLanguage(in.profile, ext, env.baseLanguage)
	}
	return buildConfirmation(pendingRequest{
		medicine:     st.Medicine,
		quantity:     quantity,
		unit:         unit,
		dosage:       dosage,
		prescription: prescription,
		language:     lang,
	}, env)
}

type pendingRequest struct {
	medicine     string
	quantity     int
	unit         string
	dosage       string
	prescription string
	language     string
}

// buildConfirmation is the only way into AwaitingConfirmation. It reserves the
// order id and prices the order so a later "yes" persists exactly what was shown.
func buildConfirmation(req pendingRequest, env turnEnv) outcome {
	unitPrice := env.unitPrice(req.medicine)
	total := orders.ComputeTotal([]orders.LineItem{{Quantity: req.quantity, UnitPrice: unitPrice}})
	pending := session.PendingOrder{
		OrderID:      env.newOrderID(),
		Medicine:     req.medicine,
		Quantity:     req.quantity,
		Unit:         req.unit,
		UnitPrice:    unitPrice,
		Total:        total,
		Dosage:       req.dosage,
		Prescription: req.prescription,
		Language:     req.language,
	}
	return outcome{
		next: session.AwaitingConfirmation{PendingOrder: pending},
		reply: confirmationReply(pendingSummary{
			Medicine:  pending.Medicine,
			Quantity:  pending.Quantity,
			Unit:      pending.Unit,
			UnitPrice: pending.UnitPrice,
			Total:     pending.Total,
		}),
		language: req.language,
	}
}

func awaitingConfirmation(st session.AwaitingConfirmation, in turnInput) outcome {
	if !IsAffirmative(in.text) {
		return outcome{
			next:     session.MainMenu{},
			reply:    cancelledReply(),
			language: st.Language,
		}
	}

	order := orders.Order{
		ID:         st.OrderID,
		CustomerID: in.userID,
		Items: []orders.LineItem{{
			Medicine:             st.Medicine,
			Quantity:             st.Quantity,
			Unit:                 st.Unit,
			UnitPrice:            st.UnitPrice,
			DosageFrequency:      st.Dosage,
			PrescriptionRequired: st.Prescription,
		}},
		Status:    orders.StatusConfirmed,
		Currency:  orders.CurrencyINR,
		CreatedAt: in.now,
	}
	order.RecomputeTotal()

	effects := []effect{appendOrder{order: order}}
	if in.profile != nil {
		effects = append(effects, incrementHistory{medicine: st.Medicine, dosage: st.Dosage, at: in.now})
	}
	effects = append(effects, notifyOrder{order: order})

	return outcome{
		next:     session.MainMenu{},
		effects:  effects,
		reply:    orderConfirmedReply(order.ID),
		language: st.Language,
	}
}

func unitOrDefault(unit string) string {
	if strings.TrimSpace(unit) == "" {
		return fallbackUnit
	}
	return strings.TrimSpace(unit)
}
