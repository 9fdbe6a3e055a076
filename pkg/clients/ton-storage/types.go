package tonstorage

type Result struct {
	Ok    bool   `json:"ok"`
	Error string `json:"error"`
}

type File struct {
	Index uint32 `json:"index"`
	Name  string `json:"name"`
	Size  uint64 `json:"size"`
}

type BagDetailed struct {
	BagID        string `json:"bag_id"`
	Description  string `json:"description"`
	Size         uint64 `json:"size"`
	BagSize      uint64 `json:"bag_size"`
	PieceSize    uint32 `json:"piece_size"`
	MerkleHash   string `json:"merkle_hash"`
	FilesCount   uint64 `json:"files_count"`
	InfoLoaded   bool   `json:"info_loaded"`
	HeaderLoaded bool   `json:"header_loaded"`
	Completed    bool   `json:"completed"`
	Files        []File `json:"files"`
}

// HasFile reports whether the bag lists a file with the given name.
func (b *BagDetailed) HasFile(name string) bool {
	for _, f := range b.Files {
		if f.Name == name {
			return true
		}
	}
	return false
}
