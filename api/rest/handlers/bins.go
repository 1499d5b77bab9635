package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"asset-pipeline/core/models"
	"asset-pipeline/core/repository"
	"asset-pipeline/storage"

	"github.com/gorilla/mux"
)

// BinHandler handles bin-related HTTP requests
type BinHandler struct {
	binRepo   *repository.BinRepository
	assetRepo *repository.AssetRepository
	managed   *storage.ManagedRepository
}

// NewBinHandler creates a new bin handler
func NewBinHandler(binRepo *repository.BinRepository, assetRepo *repository.AssetRepository, managed *storage.ManagedRepository) *BinHandler {
	return &BinHandler{binRepo: binRepo, assetRepo: assetRepo, managed: managed}
}

// GetBin handles GET /v1/bins/{uuid}
func (h *BinHandler) GetBin(w http.ResponseWriter, r *http.Request) {
	bin, ok := h.resolveBin(w, r)
	if !ok {
		return
	}

	assets, _ := h.assetRepo.ListBinAssets(bin.PK)
	items := make([]map[string]interface{}, len(assets))
	for i, a := range assets {
		items[i] = map[string]interface{}{
			"uuid":      a.UUID,
			"version":   a.Version,
			"file_path": a.FilePath,
			"byte_size": a.ByteSize,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"uuid":        bin.UUID,
		"version":     bin.Version,
		"name":        bin.Name,
		"description": bin.Description,
		"type":        bin.Type,
		"assets":      items,
	})
}

// GrantAccess handles POST /v1/bins/{uuid}/grant
func (h *BinHandler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	h.mountOp(w, r, h.managed.GrantAccess, "granted")
}

// RevokeAccess handles POST /v1/bins/{uuid}/revoke
func (h *BinHandler) RevokeAccess(w http.ResponseWriter, r *http.Request) {
	h.mountOp(w, r, h.managed.RevokeAccess, "revoked")
}

// ReadFile handles GET /v1/bins/{uuid}/files/{path}. The content type is left
// for the caller to infer from the file extension.
func (h *BinHandler) ReadFile(w http.ResponseWriter, r *http.Request) {
	bin, ok := h.resolveBin(w, r)
	if !ok {
		return
	}

	filePath := mux.Vars(r)["path"]
	version, _ := strconv.Atoi(r.URL.Query().Get("version"))

	stream, asset, err := h.managed.ReadAsset(filePath, bin, version)
	if err != nil {
		http.Error(w, "Failed to read asset: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if stream == nil {
		http.Error(w, "Asset not found", http.StatusNotFound)
		return
	}
	defer stream.Close()

	if asset.ByteSize != nil {
		w.Header().Set("Content-Length", strconv.FormatInt(*asset.ByteSize, 10))
	}
	io.Copy(w, stream)
}

func (h *BinHandler) mountOp(w http.ResponseWriter, r *http.Request, op func(*models.Bin) error, verb string) {
	bin, ok := h.resolveBin(w, r)
	if !ok {
		return
	}

	if err := op(bin); err != nil {
		http.Error(w, "Mount operation failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"uuid":    bin.UUID,
		"version": bin.Version,
		"access":  verb,
	})
}

func (h *BinHandler) resolveBin(w http.ResponseWriter, r *http.Request) (*models.Bin, bool) {
	vars := mux.Vars(r)
	version, _ := strconv.Atoi(r.URL.Query().Get("version"))

	bin, err := h.binRepo.GetBinVersion(vars["uuid"], version)
	if err != nil {
		http.Error(w, "Bin not found", http.StatusNotFound)
		return nil, false
	}
	return bin, true
}
