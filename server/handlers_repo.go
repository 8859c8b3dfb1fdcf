package server

import (
	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
	"github.com/icristescu/irmin-server/protocol"
	"github.com/icristescu/irmin-server/store"
)

func init() {
	register(protocol.CmdRepoExport, handleRepoExport)
	register(protocol.CmdRepoImport, handleRepoImport)
	register(protocol.CmdRepoNewCommit, handleRepoNewCommit)
}

// handleRepoExport walks the commit DAG from the session's current
// branch head, up to req.Depth commits deep (unbounded if absent),
// collecting every content/node/commit object reachable so Import can
// reconstruct the same graph on another repo (§4.7 "Repo").
func handleRepoExport(sess *Session, req *protocol.ExportRequest) (*protocol.ExportResponse, error) {
	head, ok := sess.currentHead(sess.branch)
	if !ok {
		return &protocol.ExportResponse{}, nil
	}

	depth, hasDepth := req.Depth.Get()
	slice := model.Slice{}
	seen := make(map[hash.Hash]struct{})

	frontier := []hash.Hash{head}
	for level := 0; len(frontier) > 0 && (!hasDepth || level < depth); level++ {
		var next []hash.Hash
		for _, commitHash := range frontier {
			if _, dup := seen[commitHash]; dup {
				continue
			}
			seen[commitHash] = struct{}{}

			c, found := store.FindCommit(sess.repo, commitHash)
			if !found {
				continue
			}
			data, _ := sess.repo.Commits.Find(commitHash)
			slice.Commits = append(slice.Commits, model.SliceEntry{Hash: commitHash, Data: data})

			if err := exportTree(sess.repo, c.Tree, &slice, seen); err != nil {
				return nil, err
			}
			next = append(next, c.Parents...)
		}
		frontier = next
	}

	return &protocol.ExportResponse{Slice: slice}, nil
}

func exportTree(repo *store.Repo, nodeHash hash.Hash, slice *model.Slice, seen map[hash.Hash]struct{}) error {
	if nodeHash.IsZero() {
		return nil
	}
	if _, dup := seen[nodeHash]; dup {
		return nil
	}
	seen[nodeHash] = struct{}{}

	data, ok := repo.Nodes.Find(nodeHash)
	if !ok {
		// Leaf contents hash rather than a node; exported as contents.
		if cdata, cok := repo.Contents.Find(nodeHash); cok {
			slice.Contents = append(slice.Contents, model.SliceEntry{Hash: nodeHash, Data: cdata})
		}
		return nil
	}
	slice.Nodes = append(slice.Nodes, model.SliceEntry{Hash: nodeHash, Data: data})

	children, err := store.DecodeNodeChildren(data)
	if err != nil {
		return err
	}
	for _, child := range children {
		switch child.Kind {
		case model.KindContents:
			if _, dup := seen[child.Hash]; !dup {
				seen[child.Hash] = struct{}{}
				if cdata, cok := repo.Contents.Find(child.Hash); cok {
					slice.Contents = append(slice.Contents, model.SliceEntry{Hash: child.Hash, Data: cdata})
				}
			}
		default:
			if err := exportTree(repo, child.Hash, slice, seen); err != nil {
				return err
			}
		}
	}
	return nil
}

// handleRepoImport ingests a slice previously produced by Export,
// trusting the carried hashes as UnsafeAdd does (§4.7 "Repo", §3
// "unsafe_add trusts a caller-supplied hash").
func handleRepoImport(sess *Session, req *protocol.ImportRequest) (*protocol.Unit, error) {
	for _, e := range req.Slice.Contents {
		if err := sess.repo.Contents.UnsafeAdd(e.Hash, e.Data); err != nil {
			return nil, err
		}
	}
	for _, e := range req.Slice.Nodes {
		if err := sess.repo.Nodes.UnsafeAdd(e.Hash, e.Data); err != nil {
			return nil, err
		}
	}
	for _, e := range req.Slice.Commits {
		if err := sess.repo.Commits.UnsafeAdd(e.Hash, e.Data); err != nil {
			return nil, err
		}
	}
	return &protocol.Unit{}, nil
}

func handleRepoNewCommit(sess *Session, req *protocol.NewCommitRequest) (*protocol.NewCommitResponse, error) {
	commit := model.Commit{Info: req.Info, Parents: req.Parents, Tree: req.Tree}
	h := store.SaveCommit(sess.repo, commit)
	return &protocol.NewCommitResponse{Commit: h}, nil
}
