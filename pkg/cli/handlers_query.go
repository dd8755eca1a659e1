package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/itchyny/gojq"
	"golang.org/x/sync/errgroup"

	"px/pkg/common"
	"px/pkg/metadata"
	"px/pkg/venv"
)

// venvInfo is one venv's state gathered for list.
type venvInfo struct {
	Name string
	Doc  *metadata.Document
	Size int64
}

// scanVenvs loads metadata and disk usage for every venv concurrently.
// Venvs without metadata (not created by px) are skipped.
func scanVenvs(venvs []*venv.Venv) ([]venvInfo, error) {
	infos := make([]*venvInfo, len(venvs))
	var g errgroup.Group
	g.SetLimit(8)
	for i, v := range venvs {
		g.Go(func() error {
			store := v.Metadata()
			if !store.Exists() {
				return nil
			}
			doc, err := store.Get()
			if err != nil {
				return fmt.Errorf("venv %s: %w", v.Name, err)
			}
			size, err := v.DiskUsage()
			if err != nil {
				return fmt.Errorf("venv %s: %w", v.Name, err)
			}
			infos[i] = &venvInfo{Name: v.Name, Doc: doc, Size: size}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	var out []venvInfo
	for _, info := range infos {
		if info != nil {
			out = append(out, *info)
		}
	}
	return out, nil
}

func runList(ctx context.Context, mgr *Managers, inv *Invocation) (*common.ExecutionResult, error) {
	venvs, err := mgr.Venvs.List()
	if err != nil {
		return nil, err
	}
	infos, err := scanVenvs(venvs)
	if err != nil {
		return nil, err
	}

	if inv.Bool("json") || inv.String("jq", "") != "" {
		docs := make(map[string]*metadata.Document, len(infos))
		for _, info := range infos {
			docs[info.Name] = info.Doc
		}
		text, err := renderJSON(ctx, docs, inv.String("jq", ""))
		if err != nil {
			return nil, err
		}
		return &common.ExecutionResult{ExitCode: common.ExitOK, Output: &common.Output{Message: text}}, nil
	}

	if len(infos) == 0 {
		return &common.ExecutionResult{
			ExitCode: common.ExitOK,
			Output:   &common.Output{Message: "nothing has been installed with px 😴"},
		}, nil
	}

	table := &common.Table{Header: []string{"Package", "Version", "Python", "Injected", "Size"}}
	for _, info := range infos {
		table.Rows = append(table.Rows, []string{
			info.Name,
			info.Doc.MainPackage.Version,
			info.Doc.Python,
			strconv.Itoa(len(info.Doc.InjectedPackages)),
			humanize.Bytes(uint64(info.Size)),
		})
	}
	return &common.ExecutionResult{ExitCode: common.ExitOK, Output: &common.Output{Table: table}}, nil
}

// freezeDocument is the on-the-wire shape of a px freeze snapshot.
type freezeDocument struct {
	SpecVersion string                             `json:"px_spec_version"`
	Venvs       map[string]metadata.FrozenDocument `json:"venvs"`
}

func runFreeze(ctx context.Context, mgr *Managers, inv *Invocation) (*common.ExecutionResult, error) {
	venvs, err := mgr.Venvs.List()
	if err != nil {
		return nil, err
	}
	infos, err := scanVenvs(venvs)
	if err != nil {
		return nil, err
	}

	skip := make(map[string]bool)
	for _, s := range inv.Strings("skip") {
		skip[s] = true
	}

	snapshot := freezeDocument{
		SpecVersion: metadata.SpecVersion,
		Venvs:       make(map[string]metadata.FrozenDocument),
	}
	for _, info := range infos {
		if skip[info.Name] {
			continue
		}
		snapshot.Venvs[info.Name] = info.Doc.Frozen()
	}

	text, err := renderJSON(ctx, snapshot, inv.String("jq", ""))
	if err != nil {
		return nil, err
	}

	if out := inv.String("output", ""); out != "" {
		if err := os.WriteFile(out, []byte(text+"\n"), 0o644); err != nil {
			return nil, fmt.Errorf("writing snapshot: %w", err)
		}
		return &common.ExecutionResult{
			ExitCode: common.ExitOK,
			Output:   &common.Output{Message: fmt.Sprintf("wrote snapshot of %d venv(s) to %s", len(snapshot.Venvs), out)},
		}, nil
	}
	return &common.ExecutionResult{ExitCode: common.ExitOK, Output: &common.Output{Message: text}}, nil
}

func runVersions(ctx context.Context, mgr *Managers, inv *Invocation) (*common.ExecutionResult, error) {
	pkg := inv.Args["package"]
	versions, err := mgr.Index.Versions(ctx, pkg)
	if err != nil {
		return nil, err
	}
	out := &common.Output{
		Message: fmt.Sprintf("%s: %d version(s) available", pkg, len(versions)),
	}
	if len(versions) > 0 {
		out.Message += "\n" + strings.Join(versions, "\n")
	}
	return &common.ExecutionResult{ExitCode: common.ExitOK, Output: out}, nil
}

func runRunpip(ctx context.Context, mgr *Managers, inv *Invocation) (*common.ExecutionResult, error) {
	name := inv.Args["venv"]
	if len(inv.Rest) == 0 {
		return nil, fmt.Errorf("no pip arguments given (px runpip %s -- <args>)", name)
	}
	v := mgr.Venvs.Venv(name)
	if !v.Exists() {
		return nil, fmt.Errorf("no venv named %q", name)
	}
	if err := mgr.Pip.Run(ctx, v.PythonPath(), "runpip", inv.Rest); err != nil {
		return nil, err
	}
	return common.Ok(), nil
}

func runVersion(_ context.Context, _ *Managers, _ *Invocation) (*common.ExecutionResult, error) {
	return &common.ExecutionResult{
		ExitCode: common.ExitOK,
		Output:   &common.Output{Message: "px " + Version},
	}, nil
}

// renderJSON marshals value as indented JSON, optionally filtered through a
// jq expression first. With a filter, each result is emitted on its own.
func renderJSON(ctx context.Context, value any, jqExpr string) (string, error) {
	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling: %w", err)
	}
	if jqExpr == "" {
		return string(raw), nil
	}

	query, err := gojq.Parse(jqExpr)
	if err != nil {
		return "", fmt.Errorf("parsing jq expression: %w", err)
	}
	// gojq wants plain maps/slices, not our structs.
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}

	var parts []string
	iter := query.RunWithContext(ctx, generic)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			return "", fmt.Errorf("jq: %w", err)
		}
		piece, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		parts = append(parts, string(piece))
	}
	return strings.Join(parts, "\n"), nil
}
