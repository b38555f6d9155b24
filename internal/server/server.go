package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/relaygrid/internal/commission"
	commissiondomain "github.com/smallbiznis/relaygrid/internal/commission/domain"
	"github.com/smallbiznis/relaygrid/internal/config"
	"github.com/smallbiznis/relaygrid/internal/extension"
	"github.com/smallbiznis/relaygrid/internal/offer"
	offerdomain "github.com/smallbiznis/relaygrid/internal/offer/domain"
	"github.com/smallbiznis/relaygrid/internal/orderrelay"
	orderdomain "github.com/smallbiznis/relaygrid/internal/orderrelay/domain"
	"github.com/smallbiznis/relaygrid/internal/participant"
	participantdomain "github.com/smallbiznis/relaygrid/internal/participant/domain"
	"github.com/smallbiznis/relaygrid/internal/settlement"
	settlementdomain "github.com/smallbiznis/relaygrid/internal/settlement/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	extension.Module,
	participant.Module,
	offer.Module,
	commission.Module,
	orderrelay.Module,
	settlement.Module,
	fx.Provide(NewEngine),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.RegisterRoutes() }),
	fx.Invoke(run),
)

func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine         *gin.Engine
	cfg            config.Config
	participantSvc participantdomain.Service
	offerSvc       offerdomain.Service
	commissionSvc  commissiondomain.Service
	orderSvc       orderdomain.Service
	settlementSvc  settlementdomain.Service
}

type ServerParams struct {
	fx.In

	Engine         *gin.Engine
	Cfg            config.Config
	ParticipantSvc participantdomain.Service
	OfferSvc       offerdomain.Service
	CommissionSvc  commissiondomain.Service
	OrderSvc       orderdomain.Service
	SettlementSvc  settlementdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:         p.Engine,
		cfg:            p.Cfg,
		participantSvc: p.ParticipantSvc,
		offerSvc:       p.OfferSvc,
		commissionSvc:  p.CommissionSvc,
		orderSvc:       p.OrderSvc,
		settlementSvc:  p.SettlementSvc,
	}
}

func (s *Server) RegisterRoutes() {
	v1 := s.engine.Group("/v1")
	v1.Use(OrgMiddleware(s.cfg))

	participants := v1.Group("/participants")
	participants.POST("", s.ApplyParticipant)
	participants.GET("", s.ListParticipants)
	participants.GET("/:id", s.GetParticipant)
	participants.GET("/:id/history", s.GetParticipantHistory)
	participants.POST("/:id/approve", s.actionHandler(participantdomain.ActionApprove))
	participants.POST("/:id/reject", s.actionHandler(participantdomain.ActionReject))
	participants.POST("/:id/suspend", s.actionHandler(participantdomain.ActionSuspend))
	participants.POST("/:id/reactivate", s.actionHandler(participantdomain.ActionReactivate))

	offers := v1.Group("/offers")
	offers.POST("", s.CreateOffer)
	offers.GET("", s.ListOffers)
	offers.GET("/:id", s.GetOffer)
	offers.POST("/:id/deactivate", s.DeactivateOffer)

	policies := v1.Group("/commission-policies")
	policies.POST("", s.CreatePolicy)
	policies.GET("", s.ListPolicies)
	policies.GET("/:id", s.GetPolicy)
	policies.PATCH("/:id", s.UpdatePolicy)
	policies.POST("/:id/deactivate", s.DeactivatePolicy)
	policies.POST("/simulate", s.SimulateCommission)

	orders := v1.Group("/orders")
	orders.POST("", s.CreateOrder)
	orders.GET("", s.ListOrders)
	orders.GET("/:id", s.GetOrder)
	orders.POST("/:id/relay", s.RelayOrder)
	orders.POST("/:id/confirm", s.ConfirmOrder)
	orders.POST("/:id/ship", s.ShipOrder)
	orders.POST("/:id/deliver", s.DeliverOrder)
	orders.POST("/:id/cancel", s.CancelOrder)
	orders.POST("/:id/refund", s.RefundOrder)

	settlements := v1.Group("/settlements")
	settlements.POST("/preview", s.PreviewSettlement)
	settlements.POST("/finalize", s.FinalizeSettlement)
	settlements.GET("", s.ListSettlements)
	settlements.GET("/:id", s.GetSettlement)
}
