package reminders

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes attaches the reminder engine endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/workspaces/{workspaceID}", func(r chi.Router) {
		r.Get("/reminders", h.Overdue)
		r.Get("/reminders/pre-due", h.PreDue)
		r.Get("/reminders/dashboard", h.Dashboard)
	})
	r.Route("/invoices/{invoiceID}", func(r chi.Router) {
		r.Get("/payment-prediction", h.Prediction)
		r.Post("/reminders/sent", h.MarkSent)
		r.Post("/reminders/pre-due/sent", h.MarkPreDueSent)
	})
}
