package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Krimson/dadguide/internal/app"
	"github.com/Krimson/dadguide/internal/content"
	"github.com/Krimson/dadguide/internal/pregnancy"
	"github.com/Krimson/dadguide/internal/progress"
)

// HTTPHandler обрабатывает HTTP запросы к Manager (Presentation Layer)
type HTTPHandler struct {
	manager *app.Manager
}

// NewHTTPHandler создает новый HTTP обработчик
func NewHTTPHandler(manager *app.Manager) *HTTPHandler {
	return &HTTPHandler{
		manager: manager,
	}
}

// ConfirmRequest - подтверждение разрушительной операции
type ConfirmRequest struct {
	Confirmed bool `json:"confirmed"`
}

// RegisterRoutes регистрирует маршруты в роутере
func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/profile", h.GetProfile).Methods("GET")
	api.HandleFunc("/profile", h.CompleteOnboarding).Methods("POST")
	api.HandleFunc("/profile", h.UpdateProfile).Methods("PATCH")
	api.HandleFunc("/dashboard", h.GetDashboard).Methods("GET")
	api.HandleFunc("/countdown", h.GetCountdown).Methods("GET")
	api.HandleFunc("/reset", h.ResetAll).Methods("POST")

	api.HandleFunc("/progress", h.GetProgress).Methods("GET")
	api.HandleFunc("/progress/notifications/dismiss", h.DismissNotification).Methods("POST")
	api.HandleFunc("/weeks/{week}/read", h.MarkWeekRead).Methods("POST")
	api.HandleFunc("/weeks/{week}/content", h.GetWeekContent).Methods("GET")
	api.HandleFunc("/weeks/{week}/content/refresh", h.RefreshWeekContent).Methods("POST")

	api.HandleFunc("/milestones", h.ListMilestones).Methods("GET")
	api.HandleFunc("/milestones/timeline", h.GetTimeline).Methods("GET")
	api.HandleFunc("/milestones/{id}/celebrate", h.CelebrateMilestone).Methods("POST")
	api.HandleFunc("/milestones/{id}/dismiss", h.DismissMilestone).Methods("POST")
	api.HandleFunc("/memories", h.ListMemories).Methods("GET")

	api.HandleFunc("/contractions", h.GetContractions).Methods("GET")
	api.HandleFunc("/contractions/start", h.StartContraction).Methods("POST")
	api.HandleFunc("/contractions/stop", h.StopContraction).Methods("POST")
	api.HandleFunc("/contractions/toggle", h.ToggleContraction).Methods("POST")
	api.HandleFunc("/contractions/reset", h.ResetContractions).Methods("POST")
	api.HandleFunc("/contractions/summary", h.GetContractionSummary).Methods("GET")
	api.HandleFunc("/contractions/share", h.ShareContractions).Methods("GET")

	api.HandleFunc("/checklist", h.GetChecklist).Methods("GET")
	api.HandleFunc("/checklist/{id}/toggle", h.TogglePacked).Methods("POST")
}

// GetProfile возвращает профиль
// @Summary Профиль
// @Tags Profile
// @Produce json
// @Success 200 {object} pregnancy.Profile
// @Failure 409 {object} map[string]interface{} "Онбординг не пройден"
// @Router /api/profile [get]
func (h *HTTPHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.manager.Profile()
	if err != nil {
		respondManagerError(w, err, "Failed to get profile")
		return
	}
	respondJSON(w, http.StatusOK, profile)
}

// CompleteOnboarding создает профиль и начальный прогресс
// @Summary Онбординг
// @Description Сохраняет дату последней менструации и имя партнера, вычисляет ПДР
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body app.OnboardingRequest true "Данные онбординга"
// @Success 201 {object} app.OnboardingResult
// @Failure 400 {object} map[string]interface{} "Неверный запрос"
// @Failure 409 {object} map[string]interface{} "Онбординг уже пройден"
// @Router /api/profile [post]
func (h *HTTPHandler) CompleteOnboarding(w http.ResponseWriter, r *http.Request) {
	var req app.OnboardingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.manager.CompleteOnboarding(r.Context(), req)
	if err != nil {
		respondManagerError(w, err, "Failed to complete onboarding")
		return
	}
	respondJSON(w, http.StatusCreated, result)
}

// UpdateProfile меняет поля профиля
// @Summary Изменить профиль
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body app.ProfileUpdate true "Изменяемые поля"
// @Success 200 {object} map[string]interface{}
// @Router /api/profile [patch]
func (h *HTTPHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req app.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, warning, err := h.manager.UpdateProfile(r.Context(), req)
	if err != nil {
		respondManagerError(w, err, "Failed to update profile")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"profile": profile,
		"warning": warning,
	})
}

// GetDashboard возвращает сводку главного экрана
// @Summary Главный экран
// @Tags Profile
// @Produce json
// @Success 200 {object} app.Dashboard
// @Router /api/dashboard [get]
func (h *HTTPHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.manager.Dashboard(r.Context())
	if err != nil {
		respondManagerError(w, err, "Failed to build dashboard")
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

// GetCountdown возвращает обратный отсчет до ПДР
// @Summary Обратный отсчет
// @Tags Profile
// @Produce json
// @Success 200 {object} pregnancy.Countdown
// @Router /api/countdown [get]
func (h *HTTPHandler) GetCountdown(w http.ResponseWriter, r *http.Request) {
	countdown, err := h.manager.Countdown()
	if err != nil {
		respondManagerError(w, err, "Failed to get countdown")
		return
	}
	respondJSON(w, http.StatusOK, countdown)
}

// ResetAll удаляет все данные пользователя
// @Summary Сбросить все данные
// @Tags Profile
// @Accept json
// @Param request body ConfirmRequest true "Подтверждение"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Нет подтверждения"
// @Router /api/reset [post]
func (h *HTTPHandler) ResetAll(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.manager.ResetAll(r.Context(), req.Confirmed); err != nil {
		respondManagerError(w, err, "Failed to reset data")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "All data reset successfully",
	})
}

// GetProgress возвращает прогресс и достижения
// @Summary Прогресс
// @Tags Progress
// @Produce json
// @Success 200 {object} app.ProgressView
// @Router /api/progress [get]
func (h *HTTPHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	view, err := h.manager.Progress()
	if err != nil {
		respondManagerError(w, err, "Failed to get progress")
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// DismissNotification закрывает уведомление и возвращает следующее
// POST /api/progress/notifications/dismiss
func (h *HTTPHandler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	next, _ := h.manager.DismissNotification()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notification": next,
	})
}

// MarkWeekRead отмечает неделю прочитанной
// @Summary Отметить неделю прочитанной
// @Tags Progress
// @Produce json
// @Param week path int true "Неделя 1..40"
// @Success 200 {object} app.ProgressResult
// @Failure 400 {object} map[string]interface{} "Неверная неделя"
// @Router /api/weeks/{week}/read [post]
func (h *HTTPHandler) MarkWeekRead(w http.ResponseWriter, r *http.Request) {
	week, ok := weekParam(w, r)
	if !ok {
		return
	}

	result, err := h.manager.MarkWeekRead(r.Context(), week)
	if err != nil {
		respondManagerError(w, err, "Failed to mark week as read")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// GetWeekContent возвращает руководство недели
// @Summary Руководство недели
// @Tags Content
// @Produce json
// @Param week path int true "Неделя 1..40"
// @Success 200 {object} content.WeekData
// @Router /api/weeks/{week}/content [get]
func (h *HTTPHandler) GetWeekContent(w http.ResponseWriter, r *http.Request) {
	h.weekContent(w, r, false)
}

// RefreshWeekContent сбрасывает кэш и запрашивает руководство заново
// @Summary Обновить руководство недели
// @Tags Content
// @Produce json
// @Param week path int true "Неделя 1..40"
// @Success 200 {object} content.WeekData
// @Router /api/weeks/{week}/content/refresh [post]
func (h *HTTPHandler) RefreshWeekContent(w http.ResponseWriter, r *http.Request) {
	h.weekContent(w, r, true)
}

func (h *HTTPHandler) weekContent(w http.ResponseWriter, r *http.Request, refresh bool) {
	week, ok := weekParam(w, r)
	if !ok {
		return
	}

	data, err := h.manager.WeekContent(r.Context(), week, refresh)
	if err != nil {
		respondManagerError(w, err, "Failed to get week content")
		return
	}
	respondJSON(w, http.StatusOK, data)
}

// ListMilestones возвращает каталог вех
// @Summary Вехи
// @Tags Milestones
// @Produce json
// @Success 200 {array} milestone.Milestone
// @Router /api/milestones [get]
func (h *HTTPHandler) ListMilestones(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.Milestones())
}

// GetTimeline возвращает хронологию вех
// GET /api/milestones/timeline
func (h *HTTPHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	timeline, err := h.manager.Timeline()
	if err != nil {
		respondManagerError(w, err, "Failed to get timeline")
		return
	}
	respondJSON(w, http.StatusOK, timeline)
}

// CelebrateMilestone отмечает веху
// @Summary Отметить веху
// @Tags Milestones
// @Accept json
// @Produce json
// @Param id path string true "Идентификатор вехи"
// @Param request body app.CelebrateRequest false "Воспоминание"
// @Success 200 {object} app.ProgressResult
// @Failure 404 {object} map[string]interface{} "Неизвестная веха"
// @Router /api/milestones/{id}/celebrate [post]
func (h *HTTPHandler) CelebrateMilestone(w http.ResponseWriter, r *http.Request) {
	var req app.CelebrateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		// Воспоминание необязательно
		req = app.CelebrateRequest{}
	}
	req.MilestoneID = mux.Vars(r)["id"]

	result, err := h.manager.CelebrateMilestone(r.Context(), req)
	if err != nil {
		respondManagerError(w, err, "Failed to celebrate milestone")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// DismissMilestone откладывает празднование
// POST /api/milestones/{id}/dismiss
func (h *HTTPHandler) DismissMilestone(w http.ResponseWriter, r *http.Request) {
	milestoneID := mux.Vars(r)["id"]

	if err := h.manager.DismissMilestone(milestoneID); err != nil {
		respondManagerError(w, err, "Failed to dismiss milestone")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Milestone dismissed",
		"milestone_id": milestoneID,
	})
}

// ListMemories возвращает воспоминания
// GET /api/memories
func (h *HTTPHandler) ListMemories(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.Memories())
}

// GetContractions возвращает состояние таймера и журнал
// @Summary Журнал сокращений
// @Tags Contractions
// @Produce json
// @Success 200 {object} contraction.Status
// @Router /api/contractions [get]
func (h *HTTPHandler) GetContractions(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.ContractionStatus())
}

// StartContraction начинает замер
// @Summary Начать замер
// @Tags Contractions
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/contractions/start [post]
func (h *HTTPHandler) StartContraction(w http.ResponseWriter, r *http.Request) {
	status, started := h.manager.StartContraction()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"started": started,
		"status":  status,
	})
}

// StopContraction завершает замер
// @Summary Завершить замер
// @Tags Contractions
// @Produce json
// @Success 200 {object} app.ContractionResult
// @Router /api/contractions/stop [post]
func (h *HTTPHandler) StopContraction(w http.ResponseWriter, r *http.Request) {
	result, err := h.manager.StopContraction(r.Context())
	if err != nil {
		respondManagerError(w, err, "Failed to stop contraction")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ToggleContraction - единственная кнопка таймера
// @Summary Старт или стоп замера
// @Tags Contractions
// @Produce json
// @Success 200 {object} app.ContractionResult
// @Router /api/contractions/toggle [post]
func (h *HTTPHandler) ToggleContraction(w http.ResponseWriter, r *http.Request) {
	result, err := h.manager.ToggleContraction(r.Context())
	if err != nil {
		respondManagerError(w, err, "Failed to toggle contraction")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ResetContractions очищает журнал
// @Summary Очистить журнал
// @Tags Contractions
// @Accept json
// @Param request body ConfirmRequest true "Подтверждение"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{} "Нет подтверждения"
// @Router /api/contractions/reset [post]
func (h *HTTPHandler) ResetContractions(w http.ResponseWriter, r *http.Request) {
	var req ConfirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	warning, err := h.manager.ResetContractions(r.Context(), req.Confirmed)
	if err != nil {
		respondManagerError(w, err, "Failed to reset contractions")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Contraction log reset successfully",
		"warning": warning,
	})
}

// GetContractionSummary возвращает средние значения и предупреждение 5-1-1
// GET /api/contractions/summary
func (h *HTTPHandler) GetContractionSummary(w http.ResponseWriter, r *http.Request) {
	status := h.manager.ContractionStatus()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(status.Log),
		"summary": status.Summary,
		"alert":   status.Alert,
	})
}

// ShareContractions отдает журнал текстом
// @Summary Текстовая выгрузка журнала
// @Tags Contractions
// @Produce plain
// @Success 200 {string} string
// @Router /api/contractions/share [get]
func (h *HTTPHandler) ShareContractions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.manager.ShareContractions()))
}

// GetChecklist возвращает сумку в роддом
// GET /api/checklist
func (h *HTTPHandler) GetChecklist(w http.ResponseWriter, r *http.Request) {
	items := h.manager.Checklist()
	packed := 0
	for _, item := range items {
		if item.Packed {
			packed++
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"packed": packed,
		"total":  len(items),
	})
}

// TogglePacked переключает пункт сумки
// @Summary Переключить пункт сумки
// @Tags Checklist
// @Produce json
// @Param id path string true "Идентификатор пункта"
// @Success 200 {object} app.ChecklistResult
// @Failure 404 {object} map[string]interface{} "Неизвестный пункт"
// @Router /api/checklist/{id}/toggle [post]
func (h *HTTPHandler) TogglePacked(w http.ResponseWriter, r *http.Request) {
	result, err := h.manager.TogglePacked(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondManagerError(w, err, "Failed to toggle item")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// ===== Утилиты =====

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("[ERROR] Failed to encode JSON response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":  message,
		"status": status,
	})
}

// respondManagerError переводит ошибку Manager в HTTP статус
func respondManagerError(w http.ResponseWriter, err error, message string) {
	switch {
	case errors.Is(err, app.ErrNotOnboarded),
		errors.Is(err, app.ErrAlreadyOnboarded),
		errors.Is(err, content.ErrSuperseded):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, app.ErrUnknownMilestone),
		errors.Is(err, pregnancy.ErrUnknownItem):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, app.ErrResetNotConfirmed),
		errors.Is(err, progress.ErrInvalidWeek),
		errors.Is(err, content.ErrInvalidWeek),
		errors.Is(err, pregnancy.ErrInvalidDate),
		errors.Is(err, pregnancy.ErrLMPInFuture),
		errors.Is(err, pregnancy.ErrPartnerNameRequired):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("[ERROR] %s: %v", message, err)
		respondError(w, http.StatusInternalServerError, message)
	}
}

func weekParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	week, err := strconv.Atoi(mux.Vars(r)["week"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid week")
		return 0, false
	}
	return week, true
}
