// internal/handler/discovery_handler.go
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"printer-service/internal/service"
	"printer-service/internal/utils"
)

// DiscoveryHandler handles printer discovery requests
type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
	logger           *utils.ServiceLogger
}

// NewDiscoveryHandler creates a new discovery handler
func NewDiscoveryHandler(discoveryService *service.DiscoveryService, logger *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discoveryService: discoveryService,
		logger:           utils.NewServiceLogger(logger, "discovery-handler"),
	}
}

// ScanPrinters scans for printers
// @Summary Scan for printers
// @Description Browse mDNS for raw TCP printers and list serial ports and USB receipt printers
// @Tags Discovery
// @Produce json
// @Param type query string false "Scan type" Enums(all, tcp, serial, usb) default(all)
// @Param timeout query string false "Scan timeout" default(5s)
// @Success 200 {object} utils.APIResponse{data=object{printers_found=int,printers=[]service.DiscoveredPrinter}} "Printer scan completed"
// @Failure 400 {object} utils.APIResponse "Invalid timeout"
// @Failure 500 {object} utils.APIResponse "Scan failed"
// @Router /discovery/scan [get]
func (h *DiscoveryHandler) ScanPrinters(c *gin.Context) {
	timeout, err := time.ParseDuration(c.DefaultQuery("timeout", "5s"))
	if err != nil || timeout <= 0 || timeout > time.Minute {
		utils.ErrorResponse(c, http.StatusBadRequest, "timeout must be a duration between 0 and 1m", err)
		return
	}

	req := service.ScanRequest{
		ScanType: c.DefaultQuery("type", "all"),
		Timeout:  timeout,
	}

	printers, err := h.discoveryService.ScanPrinters(c.Request.Context(), req)
	if err != nil {
		h.logger.Error("Failed to scan printers", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to scan printers", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Printer scan completed", gin.H{
		"printers_found": len(printers),
		"printers":       printers,
	})
}

// GetScanners lists the scanner types available on this host
// @Summary Available scanners
// @Tags Discovery
// @Produce json
// @Success 200 {object} utils.APIResponse{data=object{scanners=[]string}} "Scanners retrieved"
// @Router /discovery/scanners [get]
func (h *DiscoveryHandler) GetScanners(c *gin.Context) {
	utils.SuccessResponse(c, http.StatusOK, "Scanners retrieved", gin.H{
		"scanners": h.discoveryService.AvailableScanners(),
	})
}
