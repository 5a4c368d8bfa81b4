package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/isharaux/ussd-gateway/internal/lifecycle"
	"github.com/isharaux/ussd-gateway/internal/ussderr"
	"github.com/isharaux/ussd-gateway/pkg/codes"
	"github.com/isharaux/ussd-gateway/pkg/parser"
	"github.com/isharaux/ussd-gateway/pkg/validator"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type dialRequest struct {
	Code           string `json:"code" binding:"required"`
	SubscriptionID *int   `json:"subscriptionId"`
	TimeoutMs      int    `json:"timeoutMs"`
	Secure         bool   `json:"secure"`
}

type replyRequest struct {
	Text           string `json:"text" binding:"required"`
	SubscriptionID *int   `json:"subscriptionId"`
}

func (s *Server) handleDial(c *gin.Context) {
	var req dialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	opts := lifecycle.DialOptions{
		SubscriptionID: req.SubscriptionID,
		SecureMode:     req.Secure,
	}
	if req.TimeoutMs > 0 {
		opts.Timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	reply, err := s.svc.Dial(c.Request.Context(), req.Code, opts)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ussdReply": reply})
}

func (s *Server) handleReply(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required"})
		return
	}

	reply, err := s.svc.SendReply(c.Request.Context(), req.Text, req.SubscriptionID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ussdReply": reply})
}

func (s *Server) handleCancelSession(c *gin.Context) {
	subID, ok := optionalIntQuery(c, "subscriptionId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscriptionId"})
		return
	}

	if err := s.svc.CancelSession(c.Request.Context(), subID); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cancelled": true})
}

func (s *Server) handleSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.svc.SessionStates()})
}

func (s *Server) handleSims(c *gin.Context) {
	sims, err := s.svc.SimInfo(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sims": sims})
}

func (s *Server) handleCarrier(c *gin.Context) {
	subID, ok := optionalIntQuery(c, "subscriptionId")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscriptionId"})
		return
	}

	info, err := s.svc.CarrierInfo(c.Request.Context(), subID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleNetwork(c *gin.Context) {
	status, err := s.svc.NetworkStatus(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (s *Server) handleCapabilities(c *gin.Context) {
	c.JSON(http.StatusOK, s.svc.Capabilities())
}

func (s *Server) handleHistory(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	entries, err := s.svc.History(c.Request.Context(), limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (s *Server) handleClearHistory(c *gin.Context) {
	if err := s.svc.ClearHistory(c.Request.Context()); err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

func (s *Server) handleStats(c *gin.Context) {
	topN := 5
	if raw := c.Query("top"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			topN = n
		}
	}
	c.JSON(http.StatusOK, s.svc.Metrics(topN))
}

func (s *Server) handlePending(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"responses": s.svc.PendingResponses()})
}

func (s *Server) handleValidate(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}
	c.JSON(http.StatusOK, validator.ValidateCode(req.Code))
}

func (s *Server) handleParse(c *gin.Context) {
	var req struct {
		Response string `json:"response" binding:"required"`
		Currency string `json:"currency"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "response is required"})
		return
	}

	out := gin.H{"isMenu": parser.IsMenu(req.Response)}
	if b := parser.ParseBalance(req.Response, req.Currency); b != nil {
		out["balance"] = b
	}
	if d := parser.ParseDataBundle(req.Response); d != nil {
		out["dataBundle"] = d
	}
	if opts := parser.MenuOptions(req.Response); len(opts) > 0 {
		out["menuOptions"] = opts
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCountries(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"countries": s.codes.AvailableCountries()})
}

func (s *Server) handleCarriers(c *gin.Context) {
	country := c.DefaultQuery("country", "US")
	c.JSON(http.StatusOK, gin.H{"carriers": s.codes.AvailableCarriers(country)})
}

func (s *Server) handleSearchCarrier(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	country := c.DefaultQuery("country", "US")
	c.JSON(http.StatusOK, gin.H{"results": s.codes.SearchCarrier(query, country)})
}

func (s *Server) handleCodeLookup(c *gin.Context) {
	carrier := c.Query("carrier")
	if carrier == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "carrier is required"})
		return
	}
	country := c.DefaultQuery("country", "US")

	if typ := c.Query("type"); typ != "" {
		code := s.codes.Code(carrier, codes.Type(typ), country)
		if code == "" {
			s.respondError(c, ussderr.Newf(ussderr.KindUnknown, "no %s code for %s/%s", typ, carrier, country))
			return
		}
		c.JSON(http.StatusOK, gin.H{"code": code})
		return
	}

	all, ok := s.codes.AllCodes(carrier, country)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown carrier"})
		return
	}
	c.JSON(http.StatusOK, all)
}

func (s *Server) handleAddCustomCode(c *gin.Context) {
	var req struct {
		Carrier string `json:"carrier" binding:"required"`
		Type    string `json:"type" binding:"required"`
		Code    string `json:"code" binding:"required"`
		Country string `json:"country"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "carrier, type and code are required"})
		return
	}
	if !validator.IsValid(req.Code) {
		s.respondError(c, ussderr.Newf(ussderr.KindInvalidCode, "invalid USSD code %q", req.Code))
		return
	}

	s.codes.AddCustomCode(req.Carrier, codes.Type(req.Type), req.Code, req.Country)
	s.logger.Info("custom code added",
		zap.String("carrier", req.Carrier),
		zap.String("type", req.Type))
	c.JSON(http.StatusOK, gin.H{"added": true})
}

func (s *Server) handleClearCustomCodes(c *gin.Context) {
	s.codes.ClearCustomCodes()
	c.JSON(http.StatusOK, gin.H{"cleared": true})
}

// optionalIntQuery parses an optional integer query parameter. The second
// return is false when the value is present but malformed.
func optionalIntQuery(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, false
	}
	return &n, true
}
