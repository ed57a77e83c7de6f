package handler

import (
	"net/http"

	"winshirt-sync/internal/notify"
	"winshirt-sync/pkg/response"
)

// NotificationHandler exposes the recent notification feed.
type NotificationHandler struct {
	feed *notify.Feed
}

// NewNotificationHandler creates a notification handler.
func NewNotificationHandler(feed *notify.Feed) *NotificationHandler {
	return &NotificationHandler{feed: feed}
}

// List handles GET /notifications[?limit=n]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	response.OK(w, h.feed.Recent(queryInt(r, "limit", 50)))
}
