package checkout

import (
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"shopforge/internal/httpx"
	"shopforge/internal/pipeline"
	"shopforge/internal/tabular"
)

const catalogLimit = 8
const fallbackUnitAmount = 1999
const flatShippingMinor = 349

// Product is one sellable catalog entry, priced in minor units.
type Product struct {
	Handle     string
	Title      string
	UnitAmount int64
}

// Options configures the hosted checkout server.
type Options struct {
	SecretKey       string
	Currency        string
	StoreName       string
	BaseURL         string
	CatalogPath     string
	RefreshSchedule string // optional 5-field cron expression
}

// Server is the minimal hosted checkout: a catalog page plus a
// session-creation endpoint that redirects to Stripe Checkout.
type Server struct {
	opts Options

	mu      sync.RWMutex
	catalog []Product
}

func NewServer(opts Options) (*Server, error) {
	if opts.SecretKey == "" {
		return nil, fmt.Errorf("stripe_secret_key not set")
	}
	if opts.Currency == "" {
		opts.Currency = "usd"
	}
	s := &Server{opts: opts}
	if err := s.reloadCatalog(); err != nil {
		return nil, err
	}
	return s, nil
}

// LoadCatalog reads the product copy artifact into checkout products. The
// page stays tidy: only the first 8 products are listed.
func LoadCatalog(path string) ([]Product, error) {
	t, err := tabular.ReadFile(path, "run the copy command first")
	if err != nil {
		return nil, err
	}
	var catalog []Product
	for _, r := range t.Rows {
		if len(catalog) == catalogLimit {
			break
		}
		title := tabular.Get(r, "Title")
		catalog = append(catalog, Product{
			Handle:     pipeline.Slugify(title),
			Title:      truncateTitle(title),
			UnitAmount: unitAmount(tabular.Get(r, "Variant Price")),
		})
	}
	return catalog, nil
}

func truncateTitle(s string) string {
	if len(s) <= 70 {
		return s
	}
	r := []rune(s)
	if len(r) <= 70 {
		return s
	}
	return string(r[:70])
}

func unitAmount(price string) int64 {
	p, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
	if err != nil || p <= 0 {
		return fallbackUnitAmount
	}
	return int64(math.Round(p * 100))
}

func (s *Server) reloadCatalog() error {
	catalog, err := LoadCatalog(s.opts.CatalogPath)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()
	log.Printf("checkout catalog loaded products=%d path=%s", len(catalog), s.opts.CatalogPath)
	return nil
}

// StartCatalogRefresh reloads the catalog on the configured cron schedule
// so CSV edits show up without a restart. No-op when unconfigured.
func (s *Server) StartCatalogRefresh() {
	schedule := strings.TrimSpace(s.opts.RefreshSchedule)
	if schedule == "" {
		log.Println("Catalog refresh disabled (catalog_refresh_schedule not set)")
		return
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid catalog_refresh_schedule '%s': %v, refresh disabled", schedule, err)
		return
	}
	log.Printf("Catalog refresh scheduled (cron: %s)", schedule)

	go func() {
		for {
			now := time.Now()
			next := sched.Next(now)
			time.Sleep(next.Sub(now))
			if err := s.reloadCatalog(); err != nil {
				log.Printf("Catalog refresh error: %v", err)
			}
		}
	}()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/create-checkout-session", s.handleCreateSession)
	mux.HandleFunc("/success", s.handleSuccess)
	mux.HandleFunc("/cancel", s.handleCancel)
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.StartCatalogRefresh()
	log.Printf("Starting checkout site at %s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

var indexTmpl = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8">
    <title>{{.StoreName}} Checkout</title>
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <style>
      body{font-family:Inter,system-ui,-apple-system,Segoe UI,Roboto,Arial,sans-serif;margin:0;background:#f6f7f9;color:#111}
      .wrap{max-width:1100px;margin:0 auto;padding:24px}
      .hero{background:#fff;border-radius:16px;padding:24px;margin:16px 0;border:1px solid #eee}
      h1{font-size:28px;margin:0 0 8px}
      .grid{display:grid;grid-template-columns:repeat(auto-fill,minmax(240px,1fr));gap:16px;margin-top:16px}
      .card{background:#fff;border:1px solid #eee;border-radius:12px;padding:14px}
      .title{font-weight:700;font-size:15px;line-height:1.3;margin-bottom:8px}
      .price{color:#333;margin:6px 0 12px}
      button{appearance:none;border:0;background:#111;color:#fff;padding:10px 14px;border-radius:8px;cursor:pointer}
      .foot{color:#666;margin-top:12px;font-size:13px}
    </style>
    <script>
      async function buy(handle){
        const res = await fetch("/create-checkout-session",{
          method:"POST",
          headers:{"Content-Type":"application/json"},
          body: JSON.stringify({handle})
        });
        const data = await res.json();
        if(data.url){ window.location = data.url; } else { alert(data.error || "Checkout error"); }
      }
    </script>
  </head>
  <body>
    <div class="wrap">
      <div class="hero">
        <h1>{{.StoreName}}</h1>
        <div>Minimalist workspace goods. Secure payments by Stripe.</div>
      </div>
      <div class="grid">
        {{range .Catalog}}
        <div class="card">
          <div class="title">{{.Title}}</div>
          <div class="price">{{printf "%.2f" .Price}}</div>
          <button onclick="buy('{{.Handle}}')">Buy now</button>
        </div>
        {{end}}
      </div>
    </div>
  </body>
</html>
`))

type indexCard struct {
	Handle string
	Title  string
	Price  float64
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.mu.RLock()
	cards := make([]indexCard, len(s.catalog))
	for i, p := range s.catalog {
		cards[i] = indexCard{Handle: p.Handle, Title: p.Title, Price: float64(p.UnitAmount) / 100}
	}
	s.mu.RUnlock()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, struct {
		StoreName string
		Catalog   []indexCard
	}{s.opts.StoreName, cards}); err != nil {
		log.Printf("checkout index render error: %v", err)
	}
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Handle string `json:"handle"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	handle := strings.ToLower(strings.TrimSpace(body.Handle))

	s.mu.RLock()
	var product *Product
	for i := range s.catalog {
		if s.catalog[i].Handle == handle {
			product = &s.catalog[i]
			break
		}
	}
	s.mu.RUnlock()

	if product == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Product not found"})
		return
	}

	sessionURL, err := s.createStripeSession(*product)
	if err != nil {
		log.Printf("checkout session error handle=%s: %v", handle, err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": sessionURL})
}

type stripeSession struct {
	URL             string `json:"url"`
	AmountTotal     int64  `json:"amount_total"`
	CustomerDetails *struct {
		Email string `json:"email"`
	} `json:"customer_details"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// createStripeSession creates a Checkout Session via Stripe's form-encoded
// API and returns the hosted payment page URL.
func (s *Server) createStripeSession(p Product) (string, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("line_items[0][price_data][currency]", s.opts.Currency)
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(p.UnitAmount, 10))
	form.Set("line_items[0][price_data][product_data][name]", p.Title)
	form.Set("line_items[0][quantity]", "1")
	form.Set("success_url", s.opts.BaseURL+"/success?session_id={CHECKOUT_SESSION_ID}")
	form.Set("cancel_url", s.opts.BaseURL+"/cancel")
	form.Set("allow_promotion_codes", "true")
	form.Set("shipping_options[0][shipping_rate_data][display_name]", "Standard Shipping")
	form.Set("shipping_options[0][shipping_rate_data][type]", "fixed_amount")
	form.Set("shipping_options[0][shipping_rate_data][fixed_amount][amount]", strconv.Itoa(flatShippingMinor))
	form.Set("shipping_options[0][shipping_rate_data][fixed_amount][currency]", s.opts.Currency)

	session, err := s.stripeCall("POST", "https://api.stripe.com/v1/checkout/sessions", form)
	if err != nil {
		return "", err
	}
	return session.URL, nil
}

func (s *Server) retrieveStripeSession(id string) (*stripeSession, error) {
	return s.stripeCall("GET", "https://api.stripe.com/v1/checkout/sessions/"+url.PathEscape(id), nil)
}

func (s *Server) stripeCall(method, endpoint string, form url.Values) (*stripeSession, error) {
	var bodyReader io.Reader
	if form != nil {
		bodyReader = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequest(method, endpoint, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.SetBasicAuth(s.opts.SecretKey, "")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := httpx.ExternalHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("Stripe API error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	var session stripeSession
	if err := json.Unmarshal(respBody, &session); err != nil {
		return nil, fmt.Errorf("parsing Stripe response: %w", err)
	}
	if session.Error != nil {
		return nil, fmt.Errorf("Stripe API error: %s", session.Error.Message)
	}
	return &session, nil
}

var successTmpl = template.Must(template.New("success").Parse(`<h2>Payment successful. Thank you!</h2>
<p>Amount: <strong>{{.Amount}}</strong></p>
<p>Receipt will be sent to: <strong>{{.Email}}</strong></p>
<p><a href="/">Return to store</a></p>
`))

func (s *Server) handleSuccess(w http.ResponseWriter, r *http.Request) {
	amount := "-"
	email := "your email"
	if id := r.URL.Query().Get("session_id"); id != "" {
		if session, err := s.retrieveStripeSession(id); err == nil {
			amount = fmt.Sprintf("%.2f %s", float64(session.AmountTotal)/100, strings.ToUpper(s.opts.Currency))
			if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
				email = session.CustomerDetails.Email
			}
		} else {
			log.Printf("checkout success lookup error: %v", err)
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_ = successTmpl.Execute(w, struct{ Amount, Email string }{amount, email})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, `<h2>Payment cancelled. You were not charged.</h2><p><a href='/'>Return to store</a></p>`)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
