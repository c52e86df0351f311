package channels

import (
	"context"
	"encoding/xml"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/majordomo-ai/majordomo/pkg/bus"
	"github.com/majordomo-ai/majordomo/pkg/config"
	"github.com/majordomo-ai/majordomo/pkg/format"
	"github.com/majordomo-ai/majordomo/pkg/logger"
)

// WhatsAppChannel listens for Twilio's form-encoded webhook POSTs and
// replies synchronously with TwiML. Unlike the polling channels there is no
// outbound path: Twilio reads the reply from the webhook response body, so
// the channel calls the responder directly instead of going through the bus.
type WhatsAppChannel struct {
	*BaseChannel
	respond Responder
	server  *http.Server
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

func NewWhatsAppChannel(cfg config.WhatsAppConfig, msgBus *bus.MessageBus, respond Responder) (*WhatsAppChannel, error) {
	if respond == nil {
		return nil, fmt.Errorf("whatsapp channel requires a responder")
	}
	host := strings.TrimSpace(cfg.Host)
	port := cfg.Port
	if port <= 0 {
		port = 5001
	}

	c := &WhatsAppChannel{
		BaseChannel: NewBaseChannel("whatsapp", msgBus, cfg.AllowFrom),
		respond:     respond,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", c.handleWebhook)
	c.server = &http.Server{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // the pipeline may take a while
	}
	return c, nil
}

func (c *WhatsAppChannel) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", c.server.Addr)
	if err != nil {
		return fmt.Errorf("whatsapp listen on %s: %w", c.server.Addr, err)
	}
	c.setRunning(true)

	go func() {
		if err := c.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.ErrorCF("whatsapp", "Webhook server failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	logger.InfoCF("whatsapp", "Twilio webhook listening", map[string]interface{}{
		"addr": c.server.Addr,
	})
	return nil
}

func (c *WhatsAppChannel) Stop(ctx context.Context) error {
	c.setRunning(false)
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("whatsapp shutdown: %w", err)
	}
	logger.InfoC("whatsapp", "Twilio webhook stopped")
	return nil
}

// Send exists to satisfy the Channel interface; replies travel in the
// webhook response, never through the bus.
func (c *WhatsAppChannel) Send(ctx context.Context, msg bus.OutboundMessage) error {
	return fmt.Errorf("whatsapp channel replies synchronously, no outbound send")
}

func (c *WhatsAppChannel) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}

	sender := strings.TrimSpace(r.PostFormValue("From"))
	body := strings.TrimSpace(r.PostFormValue("Body"))
	if sender == "" || body == "" {
		c.writeTwiML(w, "")
		return
	}

	if !c.IsAllowed(sender) {
		logger.DebugCF("whatsapp", "Message rejected by allowlist", map[string]interface{}{
			"sender": sender,
		})
		c.writeTwiML(w, "")
		return
	}

	logger.InfoCF("whatsapp", "Webhook message received", map[string]interface{}{
		"sender": sender,
	})

	raw := c.respond(r.Context(), sender, body)
	c.writeTwiML(w, format.Render(raw, format.StyleParagraph))
}

func (c *WhatsAppChannel) writeTwiML(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/xml")
	out, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Write([]byte(xml.Header))
	w.Write(out)
}
