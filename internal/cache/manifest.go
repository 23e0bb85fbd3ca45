package cache

// ManifestOutput is one cached artifact's entry in a manifest record, matching
// §6's on-disk shape: {name, blob, mode}.
type ManifestOutput struct {
	Name string `json:"name"`
	Blob string `json:"blob"`
	Mode uint32 `json:"mode"`
}

// OutputInfo is everything a run_cached caller gets back: the subprocess's
// recorded stdout/stderr/exit code plus, on a hit, the restored artifact list
// (§4.7, §6). On a miss RunCached returns build's own OutputInfo, whose
// Outputs are whatever build set.
type OutputInfo struct {
	Outputs    []ManifestOutput `json:"outputs"`
	StdoutBlob string           `json:"stdout_blob,omitempty"`
	StderrBlob string           `json:"stderr_blob,omitempty"`
	Exit       int              `json:"exit"`
}

// manifestRecord is the full on-disk JSON shape of one <key>.meta file (§6).
type manifestRecord struct {
	Toolchain   string           `json:"toolchain"`
	ArgsHash    string           `json:"args_hash"`
	PreprocHash string           `json:"preproc_hash"`
	Outputs     []ManifestOutput `json:"outputs"`
	StdoutBlob  string           `json:"stdout_blob,omitempty"`
	StderrBlob  string           `json:"stderr_blob,omitempty"`
	Exit        int              `json:"exit"`

	// IncludeGraph is set only for direct-mode entries (InsertDirect): every
	// file TryDirectModeHit must revalidate before treating the entry as a
	// hit, alongside PreprocHash (direct mode's source file content hash).
	IncludeGraph []graphEntry `json:"include_graph,omitempty"`
}

func newManifestRecord(key Key, info OutputInfo) manifestRecord {
	return manifestRecord{
		Toolchain:   key.ToolchainID,
		ArgsHash:    key.ArgsHash.ToLongHexString(),
		PreprocHash: key.PreprocHash.ToLongHexString(),
		Outputs:     info.Outputs,
		StdoutBlob:  info.StdoutBlob,
		StderrBlob:  info.StderrBlob,
		Exit:        info.Exit,
	}
}

func (m manifestRecord) outputInfo() OutputInfo {
	return OutputInfo{
		Outputs:    m.Outputs,
		StdoutBlob: m.StdoutBlob,
		StderrBlob: m.StderrBlob,
		Exit:       m.Exit,
	}
}
