package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/newsbell/app/database"
	"github.com/lysyi3m/newsbell/app/feed"
	"github.com/lysyi3m/newsbell/app/tasks"
)

const (
	defaultItemLimit = 50
	maxItemLimit     = 500
)

type HandlerOptions struct {
	BaseURL string
	Version string
}

func NewHandler(itemRepo database.ItemStore, sourceRepo database.SourceStore, configCache *feed.ConfigCache,
	opener OpenerInterface, scheduler tasks.SchedulerInterface, opts HandlerOptions) *Handler {
	return &Handler{
		itemRepo:    itemRepo,
		sourceRepo:  sourceRepo,
		configCache: configCache,
		generator:   feed.NewGenerator(),
		opener:      opener,
		scheduler:   scheduler,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		version:     opts.Version,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"state":     h.scheduler.State().String(),
	}

	if stats, err := h.itemRepo.Stats(c.Request.Context()); err == nil {
		health["items"] = stats.Total
		health["unread"] = stats.Unread
	}

	if h.configCache != nil {
		health["loaded_configurations"] = h.configCache.GetConfigCount()
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetFeed(c *gin.Context) {
	items, err := h.itemRepo.Latest(c.Request.Context(), defaultItemLimit)
	if err != nil {
		slog.Error("Database error", "operation", "latest_items", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	channel := feed.Channel{
		Title:     "newsbell",
		Link:      h.baseURL,
		Generator: "newsbell " + h.version,
	}
	if h.baseURL != "" {
		channel.SelfLink = h.baseURL + "/feed.xml"
	}

	rss, err := h.generator.Run(channel, items, time.Now())
	if err != nil {
		slog.Error("RSS generation error", "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))

	c.String(http.StatusOK, rss)
}

func (h *Handler) APIGetStatus(c *gin.Context) {
	status := gin.H{
		"state":       h.scheduler.State().String(),
		"last_report": newReportView(h.scheduler.LastReport()),
	}

	stats, err := h.itemRepo.Stats(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "stats", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	status["items"] = gin.H{
		"total":    stats.Total,
		"unread":   stats.Unread,
		"notified": stats.Notified,
	}

	c.JSON(http.StatusOK, status)
}

func (h *Handler) APIListSources(c *gin.Context) {
	statuses, err := h.sourceRepo.List(c.Request.Context())
	if err != nil {
		slog.Error("Database error", "operation", "list_sources", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	sources := make([]map[string]interface{}, 0, len(statuses))
	for _, status := range statuses {
		sourceInfo := map[string]interface{}{
			"name":                 status.Name,
			"url":                  status.URL,
			"kind":                 status.Kind,
			"last_fetched_at":      status.LastFetchedAt,
			"last_success_at":      status.LastSuccessAt,
			"consecutive_failures": status.ConsecutiveFailures,
			"last_error":           status.LastError,
			"item_count":           status.ItemCount,
		}

		if h.configCache != nil {
			if sourceConfig, err := h.configCache.GetConfig(status.Name); err == nil {
				sourceInfo["enabled"] = sourceConfig.Settings.Enabled
				sourceInfo["max_items"] = sourceConfig.Settings.MaxItems
			}
		}

		sources = append(sources, sourceInfo)
	}

	c.JSON(http.StatusOK, map[string]interface{}{
		"sources": sources,
		"total":   len(sources),
	})
}

func (h *Handler) APIListItems(c *gin.Context) {
	filter, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.itemRepo.Query(c.Request.Context(), filter)
	if err != nil {
		slog.Error("Database error", "operation", "query_items", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	views := make([]itemView, 0, len(items))
	for _, item := range items {
		views = append(views, newItemView(item))
	}

	c.JSON(http.StatusOK, gin.H{
		"items":  views,
		"count":  len(views),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

func (h *Handler) APIGetItem(c *gin.Context) {
	item, err := h.itemRepo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.itemError(c, "get_item", err)
		return
	}

	c.JSON(http.StatusOK, newItemView(*item))
}

func (h *Handler) APIMarkRead(c *gin.Context) {
	id := c.Param("id")
	if err := h.itemRepo.MarkRead(c.Request.Context(), id); err != nil {
		h.itemError(c, "mark_read", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": id})
}

func (h *Handler) APIOpenItem(c *gin.Context) {
	id := c.Param("id")
	url, err := h.opener.OnOpen(c.Request.Context(), id)
	if err != nil {
		h.itemError(c, "open_item", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "url": url})
}

func (h *Handler) APIRefresh(c *gin.Context) {
	switch result := h.scheduler.Refresh(); result {
	case tasks.RefreshStarted:
		c.JSON(http.StatusAccepted, gin.H{"status": result.String()})
	case tasks.RefreshAlreadyRunning:
		c.JSON(http.StatusConflict, gin.H{
			"status": result.String(),
			"state":  h.scheduler.State().String(),
		})
	default:
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": result.String()})
	}
}

func (h *Handler) itemError(c *gin.Context, operation string, err error) {
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not found"})
		return
	}
	slog.Error("Database error", "operation", operation, "id", c.Param("id"), "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
}

func parseFilter(c *gin.Context) (database.Filter, error) {
	filter := database.Filter{
		Source: c.Query("source"),
		Text:   c.Query("q"),
		Limit:  defaultItemLimit,
	}

	if v := c.Query("unread"); v != "" {
		unread, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errors.New("unread must be a boolean")
		}
		filter.UnreadOnly = unread
	}

	for name, target := range map[string]*time.Time{"from": &filter.From, "to": &filter.To} {
		if v := c.Query(name); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return filter, errors.New(name + " must be an RFC 3339 timestamp")
			}
			*target = t
		}
	}

	for name, target := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		if v := c.Query(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return filter, errors.New(name + " must be a non-negative integer")
			}
			*target = n
		}
	}
	if filter.Limit == 0 || filter.Limit > maxItemLimit {
		filter.Limit = maxItemLimit
	}

	return filter, nil
}
