package conversation

import (
	"fmt"
	"strings"

	"github.com/wolfman30/pharmastic-ai-platform/internal/orders"
)

var (
	buttonMyOrders    = Button{ID: "my_orders", Label: "My Orders"}
	buttonBuyMedicine = Button{ID: "new", Label: "Buy Medicine"}
	buttonConfirm     = Button{ID: "yes", Label: "✅ Confirm"}
	buttonCancel      = Button{ID: "no", Label: "❌ Cancel"}

	genderButtons = []Button{
		{ID: "Male", Label: "Male"},
		{ID: "Female", Label: "Female"},
		{ID: "Other", Label: "Other"},
	}
	quantityButtons = []Button{
		{ID: "1 strip", Label: "1 Strip"},
		{ID: "2 strips", Label: "2 Strips"},
		{ID: "1 box", Label: "1 Box"},
	}
)

const (
	welcomeText      = "👋 Welcome to Pharmastic!\n\nI see you are a new customer. Let's set up your profile.\n\n*What is your Name?*"
	namePromptText   = "Please type your *Name* to continue."
	genderPromptText = "Please select your Gender:"
	agePromptText    = "Got it. \n\n*Please type your Age (e.g., 25):*"
	ageInvalidText   = "Please enter a valid number for age (e.g., 25)."
	greetingText     = "👋 Hello! I am *Pharmastic AI*.\nTell me which medicine you need."
	fallbackText     = "I didn't understand. Please type the medicine name."
	cancelledText    = "🚫 Order Cancelled."
	noHistoryText    = "📭 You have no past orders yet.\n\nTell me which medicine you need."
)

// ApologyReply is sent by gateways when a turn fails.
func ApologyReply() Reply {
	return newReply("⚠️ Sorry, something went wrong on our side. Please try again in a moment.")
}

func welcomeReply() Reply { return newReply(welcomeText) }

func askNameReply() Reply { return newReply(namePromptText) }

func askGenderReply(name string) Reply {
	return newReply(fmt.Sprintf("Nice to meet you, %s! \n\nSelect your Gender:", name), genderButtons...)
}

func repeatGenderReply() Reply { return newReply(genderPromptText, genderButtons...) }

func askAgeReply() Reply { return newReply(agePromptText) }

func invalidAgeReply() Reply { return newReply(ageInvalidText) }

func profileSavedReply(name string) Reply {
	return newReply(fmt.Sprintf("✅ Profile Saved!\n\nWelcome %s.\n\n*Which medicine do you want to order today?*", name))
}

func greetingReply() Reply { return newReply(greetingText, buttonMyOrders) }

func fallbackReply() Reply { return newReply(fallbackText, buttonMyOrders) }

func askQuantityReply(medicine string) Reply {
	return newReply(fmt.Sprintf("How many *%s* do you want?", medicine), quantityButtons...)
}

func confirmationReply(p pendingSummary) Reply {
	text := fmt.Sprintf("📋 *Order Confirmation*\nMedicine: %s\nQty: %d %s\nPrice: ₹%d each\nTotal: ₹%d\n\nConfirm?",
		p.Medicine, p.Quantity, p.Unit, p.UnitPrice, p.Total)
	return newReply(text, buttonConfirm, buttonCancel)
}

type pendingSummary struct {
	Medicine  string
	Quantity  int
	Unit      string
	UnitPrice int64
	Total     int64
}

func orderConfirmedReply(orderID string) Reply {
	return newReply(fmt.Sprintf("✅ Order Confirmed! We will notify you shortly.\nOrder ID: %s", orderID), buttonBuyMedicine)
}

func cancelledReply() Reply { return newReply(cancelledText) }

func historyReply(recent []orders.Order) Reply {
	if len(recent) == 0 {
		return newReply(noHistoryText, buttonBuyMedicine)
	}
	var b strings.Builder
	b.WriteString("🧾 *Your recent orders*\n")
	for i, o := range recent {
		items := make([]string, 0, len(o.Items))
		for _, item := range o.Items {
			items = append(items, fmt.Sprintf("%s × %d %s", item.Medicine, item.Quantity, item.Unit))
		}
		fmt.Fprintf(&b, "\n%d. %s\n   %s\n   ₹%d · %s · %s", i+1, o.ID, strings.Join(items, ", "), o.Total, o.Status, o.CreatedAt.Format("02 Jan 2006"))
	}
	return newReply(b.String(), buttonBuyMedicine)
}
