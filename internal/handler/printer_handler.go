// internal/handler/printer_handler.go
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-service/internal/model"
	"printer-service/internal/service"
	"printer-service/internal/utils"
	"printer-service/pkg/driver"
)

// PrinterHandler exposes the action dispatcher over HTTP
type PrinterHandler struct {
	dispatcher *service.Dispatcher
	logger     *utils.ServiceLogger
}

// NewPrinterHandler creates a new printer handler
func NewPrinterHandler(dispatcher *service.Dispatcher, logger *zap.Logger) *PrinterHandler {
	return &PrinterHandler{
		dispatcher: dispatcher,
		logger:     utils.NewServiceLogger(logger, "printer-handler"),
	}
}

// PrinterAction runs one printer action
// @Summary Run a printer action
// @Description Dispatch an action (print_receipt, cashbox, status, open_receipt, sell_item, apply_payment, subtotal, close_receipt, cancel_receipt, z_report, print_comanda, print_text, cut_paper, line_feed, disconnect) to the printer configured for identity. Non-fiscal failures answer 200 with success=false and data.non_blocking=true.
// @Tags Printers
// @Accept json
// @Produce json
// @Param request body service.Request true "Printer action"
// @Success 200 {object} utils.APIResponse{data=driver.ActionResult} "Action completed (or non-fiscal failure)"
// @Failure 400 {object} utils.APIResponse{data=driver.ActionResult} "Unknown action or invalid payload"
// @Failure 403 {object} utils.APIResponse{data=driver.ActionResult} "Access denied"
// @Failure 404 {object} utils.APIResponse{data=driver.ActionResult} "Printer not configured"
// @Failure 502 {object} utils.APIResponse{data=driver.ActionResult} "Fiscal printer failure"
// @Router /printer_action [post]
func (h *PrinterHandler) PrinterAction(c *gin.Context) {
	var req service.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": err.Error()})
		return
	}
	if req.Class != "" && !req.Class.Valid() {
		utils.ValidationErrorResponse(c, map[string]string{"class": "must be fiscal or nonfiscal"})
		return
	}

	h.dispatch(c, req)
}

// ListPrinters lists the configured printers
// @Summary List printers
// @Description Configured printers with their driver instance state
// @Tags Printers
// @Produce json
// @Success 200 {object} utils.APIResponse{data=[]service.PrinterState} "Printers retrieved"
// @Router /printers [get]
func (h *PrinterHandler) ListPrinters(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Printers retrieved", h.dispatcher.Printers())
}

// PrinterStatus queries one printer
// @Summary Printer status
// @Description Shortcut for the status action
// @Tags Printers
// @Produce json
// @Param identity path string true "Printer identity"
// @Param class path string true "Printer class" Enums(fiscal, nonfiscal)
// @Success 200 {object} utils.APIResponse{data=driver.ActionResult} "Status retrieved"
// @Failure 404 {object} utils.APIResponse{data=driver.ActionResult} "Printer not configured"
// @Failure 502 {object} utils.APIResponse{data=driver.ActionResult} "Fiscal printer failure"
// @Router /printers/{identity}/{class}/status [get]
func (h *PrinterHandler) PrinterStatus(c *gin.Context) {
	h.pathAction(c, "status")
}

// DisconnectPrinter closes and forgets the driver instance of one printer
// @Summary Disconnect printer
// @Tags Printers
// @Produce json
// @Param identity path string true "Printer identity"
// @Param class path string true "Printer class" Enums(fiscal, nonfiscal)
// @Success 200 {object} utils.APIResponse{data=driver.ActionResult} "Printer disconnected"
// @Failure 404 {object} utils.APIResponse{data=driver.ActionResult} "Printer not configured"
// @Router /printers/{identity}/{class}/disconnect [post]
func (h *PrinterHandler) DisconnectPrinter(c *gin.Context) {
	h.pathAction(c, "disconnect")
}

func (h *PrinterHandler) pathAction(c *gin.Context, action string) {
	class := model.PrinterClass(c.Param("class"))
	if !class.Valid() {
		utils.ValidationErrorResponse(c, map[string]string{"class": "must be fiscal or nonfiscal"})
		return
	}

	h.dispatch(c, service.Request{
		Identity: c.Param("identity"),
		Class:    class,
		Action:   action,
	})
}

func (h *PrinterHandler) dispatch(c *gin.Context, req service.Request) {
	result := h.dispatcher.Dispatch(c.Request.Context(), req)

	statusCode := ActionStatusCode(result)
	if statusCode != http.StatusOK {
		h.logger.Warn("Printer action failed",
			zap.String("request_id", utils.GetRequestID(c)),
			zap.String("printer_id", req.Identity),
			zap.String("action", req.Action),
			zap.String("error_kind", string(result.ErrorKind)),
			zap.Int("status_code", statusCode),
		)
	}

	utils.ActionResponse(c, statusCode, result)
}

// ActionStatusCode maps an action result to the HTTP status. Dispatch errors
// map to 4xx; printer failures are 502 unless the result is non-blocking.
func ActionStatusCode(result driver.ActionResult) int {
	if result.IsOK() {
		return http.StatusOK
	}

	switch result.ErrorKind {
	case driver.KindAccessDenied:
		return http.StatusForbidden
	case driver.KindNotFound:
		return http.StatusNotFound
	case driver.KindUnimplementedAction, driver.KindInvalidRequest:
		return http.StatusBadRequest
	}

	if nonBlocking, _ := result.Data["non_blocking"].(bool); nonBlocking {
		return http.StatusOK
	}
	return http.StatusBadGateway
}
