// Package main drives the ordering chatbot end to end through the web chat
// endpoint and checks the result with the admin API.
//
// Each scenario uses a fresh phone number so runs never share sessions.
//
// Usage:
//
//	ADMIN_JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go [scenario-name]
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	apiBase    string
	adminToken string
	httpClient = &http.Client{Timeout: 45 * time.Second}
	orderIDRe  = regexp.MustCompile(`Order ID: (ORD-[0-9A-Z]+)`)
)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	phone  string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...any) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

type chatReply struct {
	Text    string `json:"text"`
	Buttons []struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"buttons"`
}

func (r chatReply) hasButton(label string) bool {
	for _, b := range r.Buttons {
		if strings.EqualFold(b.Label, label) {
			return true
		}
	}
	return false
}

func (t *T) say(text string) (chatReply, bool) {
	body, _ := json.Marshal(map[string]string{"phone": t.phone, "message": text})
	resp, err := httpClient.Post(apiBase+"/api/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		t.fatalf("send %q: %v", text, err)
		return chatReply{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		t.fatalf("send %q: status %d: %s", text, resp.StatusCode, raw)
		return chatReply{}, false
	}
	var reply chatReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		t.fatalf("decode reply: %v", err)
		return chatReply{}, false
	}
	fmt.Printf("    > %s\n    < %s\n", text, strings.ReplaceAll(reply.Text, "\n", " | "))
	return reply, true
}

func adminGet(path string, out any) (int, error) {
	req, _ := http.NewRequest(http.MethodGet, apiBase+path, nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK && out != nil {
		return resp.StatusCode, json.NewDecoder(resp.Body).Decode(out)
	}
	return resp.StatusCode, nil
}

func (t *T) onboard(name string) bool {
	steps := []string{"hi", name, "Female", "34"}
	var last chatReply
	for _, step := range steps {
		reply, ok := t.say(step)
		if !ok {
			return false
		}
		last = reply
	}
	return strings.Contains(last.Text, "Profile Saved")
}

func scenarioOnboarding(t *T) {
	first, ok := t.say("hello")
	if !ok {
		return
	}
	t.check("new customer is welcomed", strings.Contains(first.Text, "Welcome to Pharmastic"))

	second, _ := t.say("Asha")
	t.check("gender buttons offered", second.hasButton("Male") && second.hasButton("Female"))

	t.say("Female")
	invalid, _ := t.say("thirty")
	t.check("non-numeric age rejected", strings.Contains(invalid.Text, "valid number"))

	saved, _ := t.say("34")
	t.check("profile saved", strings.Contains(saved.Text, "Profile Saved"))

	var profile map[string]any
	status, err := adminGet("/admin/customers/"+t.phone, &profile)
	t.check("profile visible to admin", err == nil && status == http.StatusOK && profile["name"] == "Asha")
}

func scenarioOrderWithQuantity(t *T) {
	if !t.onboard("Ravi") {
		t.fatalf("onboarding failed")
		return
	}
	reply, ok := t.say("I need 2 strips of Paracetamol 500mg")
	if !ok {
		return
	}
	if !strings.Contains(reply.Text, "Order Confirmation") {
		// Without a language model the message falls back to a medicine prompt.
		t.check("fallback asks for medicine", strings.Contains(reply.Text, "medicine"))
		return
	}
	t.check("confirmation shows total", strings.Contains(reply.Text, "Total: ₹"))
	t.check("confirm and cancel offered", len(reply.Buttons) == 2)

	done, _ := t.say("yes")
	match := orderIDRe.FindStringSubmatch(done.Text)
	t.check("order confirmed with id", match != nil)
	if match == nil {
		return
	}

	var order map[string]any
	status, err := adminGet("/admin/orders/"+match[1], &order)
	t.check("order persisted", err == nil && status == http.StatusOK && order["status"] == "Confirmed")

	history, _ := t.say("show my orders")
	t.check("history lists the order", strings.Contains(history.Text, match[1]))
}

func scenarioQuantityPrompt(t *T) {
	if !t.onboard("Meera") {
		t.fatalf("onboarding failed")
		return
	}
	reply, ok := t.say("Cetirizine")
	if !ok {
		return
	}
	if !strings.Contains(reply.Text, "How many") {
		t.check("fallback asks for medicine", strings.Contains(reply.Text, "medicine"))
		return
	}
	t.check("quantity buttons offered", reply.hasButton("1 Strip") && reply.hasButton("1 Box"))
	confirm, _ := t.say("1 box")
	t.check("confirmation follows quantity", strings.Contains(confirm.Text, "Order Confirmation"))
	cancelled, _ := t.say("no")
	t.check("decline cancels", strings.Contains(cancelled.Text, "Cancelled"))
}

func scenarioEmptyHistory(t *T) {
	if !t.onboard("Kiran") {
		t.fatalf("onboarding failed")
		return
	}
	reply, _ := t.say("my orders")
	t.check("empty history message", strings.Contains(reply.Text, "no past orders") || strings.Contains(reply.Text, "medicine"))
}

func setup() error {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if apiBase == "" {
		apiBase = "http://localhost:8000"
	}
	secret := os.Getenv("ADMIN_JWT_SECRET")
	if secret == "" {
		return fmt.Errorf("ADMIN_JWT_SECRET is required")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "e2e",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return err
	}
	adminToken = signed
	return nil
}

func main() {
	if err := setup(); err != nil {
		fmt.Println("setup:", err)
		os.Exit(1)
	}

	scenarios := []scenario{
		{Name: "onboarding", Fn: scenarioOnboarding},
		{Name: "order-with-quantity", Fn: scenarioOrderWithQuantity},
		{Name: "quantity-prompt", Fn: scenarioQuantityPrompt},
		{Name: "empty-history", Fn: scenarioEmptyHistory},
	}
	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed, totalFailed := 0, 0
	for _, sc := range scenarios {
		if filter != "" && sc.Name != filter {
			continue
		}
		t := &T{phone: fmt.Sprintf("9199%08d", rand.IntN(100_000_000))}
		fmt.Printf("\n=== %s (%s)\n", sc.Name, t.phone)
		sc.Fn(t)
		totalPassed += t.passed
		totalFailed += t.failed
	}

	fmt.Printf("\n%d passed, %d failed\n", totalPassed, totalFailed)
	if totalFailed > 0 {
		os.Exit(1)
	}
}
