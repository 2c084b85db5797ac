package widget

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zhouzirui/hookchat/backend/internal/model/widget"
	"github.com/zhouzirui/hookchat/backend/pkg/utils"
)

// Handler widget 配置的HTTP处理器
type Handler struct {
	widgets widget.Store
}

// New 创建widget处理器
func New(widgets widget.Store) *Handler {
	return &Handler{
		widgets: widgets,
	}
}

// RegisterRoutes 注册widget相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/widgets", h.handleListWidgets)
	r.Get("/widgets/{widgetID}", h.handleGetWidget)
}

func (h *Handler) handleListWidgets(w http.ResponseWriter, r *http.Request) {
	utils.RespondJSON(w, http.StatusOK, h.widgets.List())
}

func (h *Handler) handleGetWidget(w http.ResponseWriter, r *http.Request) {
	item, ok := h.widgets.FindByID(chi.URLParam(r, "widgetID"))
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "widget not found")
		return
	}
	utils.RespondJSON(w, http.StatusOK, item)
}
