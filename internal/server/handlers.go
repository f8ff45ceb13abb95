package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ginjaninja78/ventas-historico/internal/export"
	"github.com/ginjaninja78/ventas-historico/internal/reconcile"
	"github.com/ginjaninja78/ventas-historico/internal/types"
)

// Response messages.
const (
	msgHome          = "✅ API ZQRED funcionando correctamente"
	msgUsage         = "/historico → Devuelve datos guardados (sin duplicados)"
	msgUpdate        = "/reporte → Actualiza el histórico"
	msgDownload      = "/descargar/historico → Descarga el archivo DBF"
	msgExport        = "/descargar/historico.xlsx → Descarga el histórico en Excel"
	msgNotFound      = "Ruta no encontrada"
	msgRateLimited   = "Demasiadas solicitudes, intente nuevamente en unos segundos"
	msgInternalError = "Error interno del servidor"
)

func (s *Server) home(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mensaje":       msgHome,
		"usar_endpoint": msgUsage,
		"actualizar":    msgUpdate,
		"descargar":     msgDownload,
		"exportar":      msgExport,
	})
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"estado": "ok"})
}

// historico returns the ledger shaped by the configured strategy.
func (s *Server) historico(c *gin.Context) {
	entries, err := s.store.ReadAll()
	if err != nil {
		errorLogger(s.logger, c, "historico", "reading ledger", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	rows := s.strategy.Transform(entries)
	c.JSON(http.StatusOK, gin.H{
		"total": len(rows),
		"datos": rows,
	})
}

// reporte runs one reconciliation.
func (s *Server) reporte(c *gin.Context) {
	result, err := s.reconciler.Run(c.Request.Context(), reconcile.Options{})
	if err != nil {
		errorLogger(s.logger, c, "reporte", "running reconciliation", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"nuevos_agregados": len(result.New),
		"total_historico":  result.Total,
		"nuevos":           result.New,
		"resumen":          result.Stats,
	})
}

// descargarHistorico streams the raw ledger file.
func (s *Server) descargarHistorico(c *gin.Context) {
	name := filepath.Base(s.store.Path())

	err := s.store.Download(func(content io.ReadSeeker, modTime time.Time, _ int64) error {
		c.Header("Content-Type", "application/octet-stream")
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		http.ServeContent(c.Writer, c.Request, name, modTime, content)
		return nil
	})
	if err != nil {
		errorLogger(s.logger, c, "descargarHistorico", "opening ledger", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
	}
}

// descargarExcel streams the display rows as a workbook.
func (s *Server) descargarExcel(c *gin.Context) {
	if !s.store.Exists() {
		err := &types.StoreNotFoundError{Path: s.store.Path()}
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	entries, err := s.store.ReadAll()
	if err != nil {
		errorLogger(s.logger, c, "descargarExcel", "reading ledger", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	f, err := export.Workbook(s.strategy, s.strategy.Transform(entries))
	if err != nil {
		errorLogger(s.logger, c, "descargarExcel", "building workbook", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()

	base := filepath.Base(s.store.Path())
	name := strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
	c.Header("Content-Type", export.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		errorLogger(s.logger, c, "descargarExcel", "writing workbook", err)
	}
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var missing *types.MissingFileError
	var notFound *types.StoreNotFoundError
	switch {
	case errors.As(err, &missing), errors.As(err, &notFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
