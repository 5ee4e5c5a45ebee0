package handler

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"snackbox/backend/internal/config"
	"snackbox/backend/internal/lifecycle"
	"snackbox/backend/internal/models"
	"snackbox/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createRequestBody struct {
	SnackType models.SnackType `json:"snackType" binding:"required"`
	Topic     *string          `json:"topic"`
	Duration  int              `json:"duration" binding:"required"`
	Tags      []string         `json:"tags"`
	Location  *string          `json:"location"`
}

// CreateRequest enqueues a waiting request and immediately attempts a match.
// The response tells the requester whether they were paired on the spot;
// otherwise the client polls match-status or listens on the realtime channel.
func (h *Handler) CreateRequest(c *gin.Context) {
	userID := currentUserID(c)

	var body createRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if !models.ValidSnackType(body.SnackType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid snack type"})
		return
	}
	if !slices.Contains(config.ValidDurations, body.Duration) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "duration must be 10, 15 or 30 minutes"})
		return
	}
	if len(body.Tags) > config.MaxTags {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at most 5 tags allowed"})
		return
	}

	user, err := h.Storage.GetUserByID(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	if user.Suspended {
		c.JSON(http.StatusForbidden, gin.H{"error": "account suspended from matching"})
		return
	}

	if existing, err := h.Storage.WaitingRequestForUser(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check existing request"})
		return
	} else if existing != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "you already have a waiting request"})
		return
	}
	if active, err := h.activeSessionFor(userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check active session"})
		return
	} else if active != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "you already have an active session"})
		return
	}

	request := &models.SnackRequest{
		CreatedBy: userID,
		SnackType: body.SnackType,
		Topic:     body.Topic,
		Duration:  body.Duration,
		Tags:      body.Tags,
		Location:  body.Location,
		Status:    models.RequestWaiting,
	}
	if err := h.Storage.CreateRequest(request); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create request"})
		return
	}

	view, err := h.Finder.AttemptMatch(request.ID)
	if err != nil {
		zap.L().Error("match attempt failed",
			zap.Uint("requestId", request.ID), zap.Error(err))
		// The request is queued; a later requester can still pick it up.
	}
	if view != nil {
		// Reload: the match flipped the status to matched.
		if fresh, err := h.Storage.GetRequestByID(request.ID); err == nil {
			request = fresh
		}
		c.JSON(http.StatusCreated, gin.H{"request": request, "matched": true, "session": view})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"request": request, "matched": false})
}

// CancelRequest withdraws the caller's own waiting request.
func (h *Handler) CancelRequest(c *gin.Context) {
	requestID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	err := h.Storage.CancelRequest(requestID, currentUserID(c))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "request not found"})
	case errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": "request is no longer waiting"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel request"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true})
	}
}

// MatchStatus is the polling fallback: it reports the caller's waiting
// request and active session, expiring the session lazily if its deadline
// passed between sweeps.
func (h *Handler) MatchStatus(c *gin.Context) {
	userID := currentUserID(c)

	request, err := h.Storage.WaitingRequestForUser(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load request"})
		return
	}
	session, err := h.activeSessionFor(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}

	resp := gin.H{
		"hasActiveRequest": request != nil,
		"hasActiveSession": session != nil,
	}
	if request != nil {
		resp["request"] = request
	}
	if session != nil {
		view, err := h.Storage.SessionView(session.ID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
			return
		}
		resp["session"] = view
	}
	c.JSON(http.StatusOK, resp)
}

type rateBody struct {
	SessionID uint `json:"sessionId" binding:"required"`
	Rating    int  `json:"rating" binding:"required"`
}

// Rate records the caller's 1..5 rating of their counterpart's session.
func (h *Handler) Rate(c *gin.Context) {
	var body rateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	session, err := h.Lifecycle.SubmitRating(body.SessionID, currentUserID(c), body.Rating)
	switch {
	case errors.Is(err, lifecycle.ErrInvalidRating):
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
	case errors.Is(err, storage.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	case errors.Is(err, storage.ErrNotParticipant):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this session"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to submit rating"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "session": session})
	}
}

type reportBody struct {
	ReportedID  uint    `json:"reportedId" binding:"required"`
	SessionID   *uint   `json:"sessionId"`
	Reason      string  `json:"reason" binding:"required"`
	Description *string `json:"description"`
}

// Report files an accusation against another user. From now on the pair is
// excluded from matching with each other; enough distinct reporters within
// the rolling window suspends the reported user outright.
func (h *Handler) Report(c *gin.Context) {
	userID := currentUserID(c)

	var body reportBody
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Reason) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.ReportedID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot report yourself"})
		return
	}

	report := &models.SnackReport{
		ReporterID:  userID,
		ReportedID:  body.ReportedID,
		SessionID:   body.SessionID,
		Reason:      strings.TrimSpace(body.Reason),
		Description: body.Description,
	}
	if err := h.Storage.CreateReport(report); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to file report"})
		return
	}
	h.Alerts.ReportFiled(report)

	h.maybeSuspend(body.ReportedID)

	c.JSON(http.StatusCreated, gin.H{"success": true})
}

// maybeSuspend auto-suspends a user reported by enough distinct reporters
// within the window. Failures only log; the report itself already landed.
func (h *Handler) maybeSuspend(reportedID uint) {
	since := time.Now().Add(-config.SuspendReportWindow)
	count, err := h.Storage.DistinctReporterCount(reportedID, since)
	if err != nil {
		zap.L().Warn("failed to count reporters",
			zap.Uint("reportedId", reportedID), zap.Error(err))
		return
	}
	if count < config.SuspendReportThreshold {
		return
	}
	if err := h.Storage.SetUserSuspended(reportedID, true); err != nil {
		zap.L().Error("failed to suspend user",
			zap.Uint("userId", reportedID), zap.Error(err))
		return
	}
	zap.L().Warn("user auto-suspended from matching",
		zap.Uint("userId", reportedID), zap.Int64("reporters", count))
	h.Alerts.UserSuspended(reportedID, count)
}

type blockBody struct {
	UserID uint `json:"userId" binding:"required"`
}

// Block excludes the given user from ever matching with the caller again, in
// both directions.
func (h *Handler) Block(c *gin.Context) {
	userID := currentUserID(c)

	var body blockBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if body.UserID == userID {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot block yourself"})
		return
	}
	if err := h.Storage.CreateBlock(userID, body.UserID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to block user"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetMessages lists the session's chat history, oldest first, with each
// sender's user record attached.
func (h *Handler) GetMessages(c *gin.Context) {
	session, ok := h.participantSession(c)
	if !ok {
		return
	}
	messages, err := h.Storage.MessagesForSession(session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	view, err := h.Storage.SessionView(session.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}
	// Only two possible senders, both already joined on the view.
	senders := map[uint]models.User{
		view.User1.ID: view.User1,
		view.User2.ID: view.User2,
	}
	out := make([]models.NewMessagePayload, len(messages))
	for i, msg := range messages {
		out[i] = models.NewMessagePayload{SnackMessage: msg, Sender: senders[msg.SenderID]}
	}
	c.JSON(http.StatusOK, out)
}

type sendMessageBody struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage persists a chat message over HTTP and fans it out on the
// realtime channel. Rejected once the session has ended, including sessions
// that expired since the last sweep.
func (h *Handler) SendMessage(c *gin.Context) {
	session, ok := h.participantSession(c)
	if !ok {
		return
	}

	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	content := strings.TrimSpace(body.Content)
	if content == "" || utf8.RuneCountInString(content) > config.MaxMessageLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message must be 1-500 characters"})
		return
	}

	session, err := h.Lifecycle.EndIfExpired(session)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}
	if session.Status == models.SessionEnded {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session has ended"})
		return
	}

	userID := currentUserID(c)
	msg := &models.SnackMessage{
		SessionID: session.ID,
		SenderID:  userID,
		Content:   content,
	}
	if err := h.Storage.CreateMessage(msg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		return
	}

	if sender, err := h.Storage.GetUserByID(userID); err == nil {
		if ev, err := models.NewEvent(models.EventNewMessage, models.NewMessagePayload{
			SnackMessage: *msg,
			Sender:       *sender,
		}); err == nil {
			if err := h.Storage.PublishBroadcast(models.Broadcast{SessionID: session.ID, Event: ev}); err != nil {
				zap.L().Warn("failed to publish new-message", zap.Error(err))
			}
		}
	}

	c.JSON(http.StatusCreated, msg)
}

// ExtendSession adds 10 minutes to the session. Either participant may
// extend on their own; the extend-request realtime prompt is advisory.
func (h *Handler) ExtendSession(c *gin.Context) {
	session, ok := h.participantSession(c)
	if !ok {
		return
	}
	extended, err := h.Lifecycle.Extend(session.ID)
	switch {
	case errors.Is(err, storage.ErrConflict):
		c.JSON(http.StatusBadRequest, gin.H{"error": "session has ended"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to extend session"})
	default:
		c.JSON(http.StatusOK, gin.H{"success": true, "session": extended})
	}
}

// activeSessionFor loads the user's active session with lazy expiry applied,
// returning nil once expiry ends it.
func (h *Handler) activeSessionFor(userID uint) (*models.SnackSession, error) {
	session, err := h.Storage.ActiveSessionForUser(userID)
	if err != nil || session == nil {
		return nil, err
	}
	session, err = h.Lifecycle.EndIfExpired(session)
	if err != nil {
		return nil, err
	}
	if session.Status == models.SessionEnded {
		return nil, nil
	}
	return session, nil
}

// participantSession resolves the :id session and authorizes the caller,
// writing the error response itself on failure.
func (h *Handler) participantSession(c *gin.Context) (*models.SnackSession, bool) {
	sessionID, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	session, err := h.Storage.GetSessionByID(sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return nil, false
	}
	if !session.HasParticipant(currentUserID(c)) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a participant of this session"})
		return nil, false
	}
	return session, true
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
