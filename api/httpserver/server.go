// Package httpserver exposes the operator surface of a federation
// node: domain membership, direct contract operations, state queries,
// and triggers for full negotiation runs.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"fedra/domain/federation"
	"fedra/infra/ledger"
	"fedra/service"
)

// LedgerAPI is the contract client surface the HTTP layer drives.
// *ledger.Client satisfies it.
type LedgerAPI interface {
	service.Ledger

	RegisterDomain(ctx context.Context, name string) (common.Hash, error)
	UnregisterDomain(ctx context.Context) (common.Hash, error)
	Registered() bool
	Receipt(ctx context.Context, tx common.Hash) (*types.Receipt, error)
}

// Runner triggers one full negotiation in the node's configured role.
type Runner interface {
	RunConsumer(ctx context.Context) (service.ConsumerResult, error)
	RunProvider(ctx context.Context) (service.ProviderResult, error)
}

type Server struct {
	ledger   LedgerAPI
	sessions *service.Sessions
	runner   Runner
	logger   *zap.Logger
	mux      *http.ServeMux
}

func New(l LedgerAPI, sessions *service.Sessions, runner Runner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		ledger:   l,
		sessions: sessions,
		runner:   runner,
		logger:   logger.With(zap.String("component", "http")),
		mux:      http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	s.mux.HandleFunc("POST /register_domain", s.handleRegister)
	s.mux.HandleFunc("DELETE /unregister_domain", s.handleUnregister)

	s.mux.HandleFunc("POST /announce_service", s.handleAnnounce)
	s.mux.HandleFunc("POST /place_bid", s.handlePlaceBid)
	s.mux.HandleFunc("POST /choose_provider", s.handleChooseProvider)
	s.mux.HandleFunc("POST /service_deployed", s.handleServiceDeployed)

	s.mux.HandleFunc("GET /service/{id}/state", s.handleState)
	s.mux.HandleFunc("GET /service/{id}/bid/{index}", s.handleBid)
	s.mux.HandleFunc("GET /service/{id}/is_winner", s.handleIsWinner)
	s.mux.HandleFunc("GET /service/{id}/info", s.handleInfo)
	s.mux.HandleFunc("GET /tx/{hash}/receipt", s.handleReceipt)
	s.mux.HandleFunc("GET /sessions", s.handleSessions)

	s.mux.HandleFunc("POST /run/consumer", s.handleRunConsumer)
	s.mux.HandleFunc("POST /run/provider", s.handleRunProvider)
}

// ----- plumbing -----

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, federation.ErrMalformed):
		code = http.StatusBadRequest
	case errors.Is(err, ledger.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, ledger.ErrRejected), errors.Is(err, service.ErrSessionActive):
		code = http.StatusConflict
	case errors.Is(err, ledger.ErrUnavailable):
		code = http.StatusServiceUnavailable
	case errors.Is(err, service.ErrDeadline):
		code = http.StatusGatewayTimeout
	}
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.Error(err))
	}
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return federation.ErrMalformed
	}
	return nil
}

// ----- membership -----

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"registered": s.ledger.Registered(),
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	tx, err := s.ledger.RegisterDomain(r.Context(), req.Name)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tx": tx.Hex()})
}

func (s *Server) handleUnregister(w http.ResponseWriter, r *http.Request) {
	// A domain carrying live federations cannot walk away from them.
	if n := s.sessions.Active(); n > 0 {
		s.writeErr(w, service.ErrSessionActive)
		return
	}
	tx, err := s.ledger.UnregisterDomain(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tx": tx.Hex()})
}

// ----- direct contract operations -----

type endpointBody struct {
	IPAddress     string `json:"ip_address"`
	VXLANID       int    `json:"vxlan_id"`
	VXLANPort     int    `json:"vxlan_port"`
	FederationNet string `json:"federation_net"`
}

func (b endpointBody) toDomain() federation.Endpoint {
	return federation.Endpoint{
		IPAddress:     b.IPAddress,
		VXLANID:       b.VXLANID,
		VXLANPort:     b.VXLANPort,
		FederationNet: b.FederationNet,
	}
}

func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServiceID    string       `json:"service_id"`
		Requirements string       `json:"requirements"`
		Endpoint     endpointBody `json:"endpoint"`
	}
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	reqs, err := federation.ParseRequirements(req.Requirements)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	tx, err := s.ledger.AnnounceService(r.Context(), reqs, req.Endpoint.toDomain(), req.ServiceID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tx": tx.Hex(), "service_id": req.ServiceID})
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServiceID string       `json:"service_id"`
		Price     uint64       `json:"price"`
		Endpoint  endpointBody `json:"endpoint"`
	}
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	tx, err := s.ledger.PlaceBid(r.Context(), req.ServiceID, req.Price, req.Endpoint.toDomain())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tx": tx.Hex()})
}

func (s *Server) handleChooseProvider(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServiceID string `json:"service_id"`
		BidIndex  uint64 `json:"bid_index"`
	}
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	tx, err := s.ledger.ChooseProvider(r.Context(), req.ServiceID, req.BidIndex)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tx": tx.Hex()})
}

func (s *Server) handleServiceDeployed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ServiceID     string `json:"service_id"`
		FederatedHost string `json:"federated_host"`
	}
	if err := decode(r, &req); err != nil {
		s.writeErr(w, err)
		return
	}
	tx, err := s.ledger.ConfirmDeployed(r.Context(), req.ServiceID, req.FederatedHost)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tx": tx.Hex()})
}

// ----- queries -----

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.ledger.ServiceState(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"state": st.String()})
}

func (s *Server) handleBid(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.ParseUint(r.PathValue("index"), 10, 64)
	if err != nil {
		s.writeErr(w, federation.ErrMalformed)
		return
	}
	b, err := s.ledger.Bid(r.Context(), r.PathValue("id"), index)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service_id": b.ServiceID,
		"index":      b.Index,
		"provider":   b.Provider,
		"price":      b.Price,
	})
}

func (s *Server) handleIsWinner(w http.ResponseWriter, r *http.Request) {
	won, err := s.ledger.IsWinner(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"is_winner": won})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	asProvider := r.URL.Query().Get("as_provider") == "true"
	info, err := s.ledger.ServiceInfo(r.Context(), r.PathValue("id"), asProvider)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"service_id":     info.ID,
		"endpoint":       info.Endpoint.String(),
		"federated_host": info.FederatedHost,
	})
}

func (s *Server) handleReceipt(w http.ResponseWriter, r *http.Request) {
	rc, err := s.ledger.Receipt(r.Context(), common.HexToHash(r.PathValue("hash")))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tx":     rc.TxHash.Hex(),
		"status": rc.Status,
		"block":  rc.BlockNumber,
	})
}

func (s *Server) handleSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"active":   s.sessions.Active(),
		"sessions": s.sessions.List(),
	})
}

// ----- negotiation runs -----

func (s *Server) handleRunConsumer(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.RunConsumer(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service_id":     res.ServiceID,
		"winner":         res.Winner.Provider,
		"price":          res.Winner.Price,
		"federated_host": res.FederatedHost,
	})
}

func (s *Server) handleRunProvider(w http.ResponseWriter, r *http.Request) {
	res, err := s.runner.RunProvider(r.Context())
	if err != nil {
		s.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service_id":     res.ServiceID,
		"won":            res.Won,
		"federated_host": res.FederatedHost,
	})
}
