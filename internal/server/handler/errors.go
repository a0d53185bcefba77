package handler

import (
	"net/http"

	"github.com/neurabytelabs/modus-forge/pkg/errorx"
)

// API handler error codes.
// Code format: 2XXYYZ
//   - 2:  module prefix (api handler)
//   - XX: resource group (00=common, 01=generate, 02=grimoire, 03=history, 04=models)
//   - YY: sequential error number
//   - Z:  reserved (0)

const (
	// Common request errors (200xxx).
	ErrBind          = 200010
	ErrNotConfigured = 200020

	// Generate errors (2001xx).
	ErrEmptyPrompt = 200110
	ErrPipelineRun = 200120
	ErrValidate    = 200130

	// Grimoire errors (2002xx).
	ErrSpellNotFound = 200210
	ErrSpellSave     = 200220
	ErrSpellList     = 200230

	// History errors (2003xx).
	ErrHistoryList = 200310

	// Model errors (2004xx).
	ErrModelList = 200410
)

func init() {
	errorx.MustRegister(errorx.NewCoder(ErrBind, http.StatusBadRequest, "Request body binding failed"))
	errorx.MustRegister(errorx.NewCoder(ErrNotConfigured, http.StatusNotImplemented, "Subsystem not configured"))

	errorx.MustRegister(errorx.NewCoder(ErrEmptyPrompt, http.StatusBadRequest, "Prompt is required"))
	errorx.MustRegister(errorx.NewCoder(ErrPipelineRun, http.StatusInternalServerError, "Generation failed"))
	errorx.MustRegister(errorx.NewCoder(ErrValidate, http.StatusBadRequest, "Validation input invalid"))

	errorx.MustRegister(errorx.NewCoder(ErrSpellNotFound, http.StatusNotFound, "Spell not found"))
	errorx.MustRegister(errorx.NewCoder(ErrSpellSave, http.StatusInternalServerError, "Failed to save spell"))
	errorx.MustRegister(errorx.NewCoder(ErrSpellList, http.StatusInternalServerError, "Failed to list spells"))

	errorx.MustRegister(errorx.NewCoder(ErrHistoryList, http.StatusInternalServerError, "Failed to list history"))

	errorx.MustRegister(errorx.NewCoder(ErrModelList, http.StatusInternalServerError, "Failed to list models"))
}
