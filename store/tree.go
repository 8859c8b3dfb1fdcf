package store

import (
	"sort"

	"github.com/icristescu/irmin-server/hash"
	"github.com/icristescu/irmin-server/model"
)

// Tree is the server-side in-memory representation of a tree value
// (§3): either a lazy reference to a stored node/contents key, a
// concrete directory of named children, or a concrete contents leaf.
// A tree built in memory has leaf or dir set; a tree loaded by
// reference has only ref until resolve populates dir/leaf from it on
// first navigation, and Save records ref on a tree it persists, so ref
// may sit alongside dir or leaf. Trees are persistent (every
// mutating method returns a new Tree); the source Tree a mutation was
// derived from remains valid and unmodified, matching the "source
// handle remains valid" invariant in §4.7.
type Tree struct {
	ref  *model.Key
	leaf *model.Contents
	dir  map[string]*Tree
}

// Empty allocates a new empty directory tree.
func Empty() *Tree {
	return &Tree{dir: map[string]*Tree{}}
}

// FromContents wraps a contents value directly as a tree (used when a
// path resolves to a leaf).
func FromContents(c model.Contents) *Tree {
	return &Tree{leaf: &c}
}

// OfHash hydrates a handle from a bare node hash, without checking
// that the hash actually resolves to a node until first navigated.
func OfHash(h hash.Hash) *Tree {
	k := model.Key{Kind: model.KindNode, Hash: h}
	return &Tree{ref: &k}
}

// OfCommit hydrates a handle to the tree referenced by a commit.
func OfCommit(repo *Repo, commitHash hash.Hash) (*Tree, error) {
	data, ok := repo.Commits.Find(commitHash)
	if !ok {
		return nil, ErrNotFound
	}
	c, err := decodeCommit(data)
	if err != nil {
		return nil, err
	}
	return OfHash(c.Tree), nil
}

func (t *Tree) resolve(repo *Repo) error {
	if t.dir != nil || t.leaf != nil {
		return nil
	}
	if t.ref == nil {
		t.dir = map[string]*Tree{}
		return nil
	}

	switch t.ref.Kind {
	case model.KindContents:
		data, ok := repo.Contents.Find(t.ref.Hash)
		if !ok {
			return ErrNotFound
		}
		c := model.Contents(data)
		t.leaf = &c
	default:
		data, ok := repo.Nodes.Find(t.ref.Hash)
		if !ok {
			return ErrNotFound
		}
		m, err := decodeNode(data)
		if err != nil {
			return err
		}
		dir := make(map[string]*Tree, len(m))
		for step, key := range m {
			k := key
			dir[step] = &Tree{ref: &k}
		}
		t.dir = dir
	}
	return nil
}

// navigate walks to the tree found at path, returning nil if any step
// along the way is absent.
func (t *Tree) navigate(repo *Repo, path model.Path) (*Tree, error) {
	cur := t
	for _, step := range path {
		if err := cur.resolve(repo); err != nil {
			return nil, err
		}
		if cur.dir == nil {
			return nil, nil
		}
		next, ok := cur.dir[step]
		if !ok {
			return nil, nil
		}
		cur = next
	}
	return cur, nil
}

// Find returns the contents value at path, if any.
func (t *Tree) Find(repo *Repo, path model.Path) (model.Contents, bool, error) {
	cur, err := t.navigate(repo, path)
	if err != nil || cur == nil {
		return nil, false, err
	}
	if err := cur.resolve(repo); err != nil {
		return nil, false, err
	}
	if cur.leaf == nil {
		return nil, false, nil
	}
	return *cur.leaf, true, nil
}

// Mem reports whether path addresses a contents value.
func (t *Tree) Mem(repo *Repo, path model.Path) (bool, error) {
	_, ok, err := t.Find(repo, path)
	return ok, err
}

// MemTree reports whether path addresses a (possibly empty) subtree.
func (t *Tree) MemTree(repo *Repo, path model.Path) (bool, error) {
	cur, err := t.navigate(repo, path)
	if err != nil || cur == nil {
		return false, err
	}
	if err := cur.resolve(repo); err != nil {
		return false, err
	}
	return cur.dir != nil, nil
}

// FindTree returns the subtree handle at path, if any.
func (t *Tree) FindTree(repo *Repo, path model.Path) (*Tree, bool, error) {
	cur, err := t.navigate(repo, path)
	if err != nil || cur == nil {
		return nil, false, err
	}
	if err := cur.resolve(repo); err != nil {
		return nil, false, err
	}
	if cur.dir == nil {
		return nil, false, nil
	}
	return cur, true, nil
}

func copyDir(dir map[string]*Tree) map[string]*Tree {
	out := make(map[string]*Tree, len(dir))
	for k, v := range dir {
		out[k] = v
	}
	return out
}

// withSet returns a new tree identical to t except that path now holds
// value.
func (t *Tree) withSet(repo *Repo, path model.Path, value *Tree) (*Tree, error) {
	if path.IsEmpty() {
		return value, nil
	}
	if err := t.resolve(repo); err != nil {
		return nil, err
	}
	step, rest := path.Head()

	child := Empty()
	if c, ok := t.dir[step]; ok {
		child = c
	}
	newChild, err := child.withSet(repo, rest, value)
	if err != nil {
		return nil, err
	}

	newDir := copyDir(t.dir)
	newDir[step] = newChild
	return &Tree{dir: newDir}, nil
}

// Add returns a new tree with contents set at path.
func (t *Tree) Add(repo *Repo, path model.Path, contents model.Contents) (*Tree, error) {
	return t.withSet(repo, path, FromContents(contents))
}

// AddTree returns a new tree with sub grafted at path.
func (t *Tree) AddTree(repo *Repo, path model.Path, sub *Tree) (*Tree, error) {
	return t.withSet(repo, path, sub)
}

// Remove returns a new tree with path (and anything under it) removed.
func (t *Tree) Remove(repo *Repo, path model.Path) (*Tree, error) {
	if path.IsEmpty() {
		return Empty(), nil
	}
	if err := t.resolve(repo); err != nil {
		return nil, err
	}
	step, rest := path.Head()
	child, ok := t.dir[step]
	if !ok {
		return t, nil
	}

	if rest.IsEmpty() {
		newDir := copyDir(t.dir)
		delete(newDir, step)
		return &Tree{dir: newDir}, nil
	}

	newChild, err := child.Remove(repo, rest)
	if err != nil {
		return nil, err
	}
	newDir := copyDir(t.dir)
	newDir[step] = newChild
	return &Tree{dir: newDir}, nil
}

func childKind(c *Tree) model.Kind {
	switch {
	case c.ref != nil:
		return c.ref.Kind
	case c.leaf != nil:
		return model.KindContents
	default:
		return model.KindNode
	}
}

// List returns the immediate children at path.
func (t *Tree) List(repo *Repo, path model.Path) ([]model.ListEntry, error) {
	cur, err := t.navigate(repo, path)
	if err != nil || cur == nil {
		return nil, err
	}
	if err := cur.resolve(repo); err != nil {
		return nil, err
	}
	if cur.dir == nil {
		return nil, nil
	}

	out := make([]model.ListEntry, 0, len(cur.dir))
	for name, child := range cur.dir {
		out = append(out, model.ListEntry{Name: name, Kind: childKind(child)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// computeKey computes the content-addressed key t would have if
// persisted, without writing anything.
func (t *Tree) computeKey(repo *Repo) (model.Key, error) {
	if t.ref != nil {
		return *t.ref, nil
	}
	if t.leaf != nil {
		return model.Key{Kind: model.KindContents, Hash: hash.Of(*t.leaf)}, nil
	}

	m := make(nodeMap, len(t.dir))
	for step, child := range t.dir {
		k, err := child.computeKey(repo)
		if err != nil {
			return model.Key{}, err
		}
		m[step] = k
	}
	return model.Key{Kind: model.KindNode, Hash: hash.Of(encodeNode(m))}, nil
}

// Hash computes t's content hash without persisting it.
func (t *Tree) Hash(repo *Repo) (hash.Hash, error) {
	k, err := t.computeKey(repo)
	if err != nil {
		return hash.Hash{}, err
	}
	return k.Hash, nil
}

// Key computes t's kinded content key without persisting it.
func (t *Tree) Key(repo *Repo) (model.Key, error) {
	return t.computeKey(repo)
}

// Save persists t (and everything under it) and returns the resulting
// key. Already-persisted subtrees (ref != nil) are not re-written.
func (t *Tree) Save(repo *Repo) (model.Key, error) {
	if t.ref != nil {
		return *t.ref, nil
	}
	if t.leaf != nil {
		h := repo.Contents.Add(*t.leaf)
		k := model.Key{Kind: model.KindContents, Hash: h}
		t.ref = &k
		return k, nil
	}

	m := make(nodeMap, len(t.dir))
	for step, child := range t.dir {
		k, err := child.Save(repo)
		if err != nil {
			return model.Key{}, err
		}
		m[step] = k
	}
	h := repo.Nodes.Add(encodeNode(m))
	k := model.Key{Kind: model.KindNode, Hash: h}
	t.ref = &k
	return k, nil
}

// ToLocal fully materializes t for client transport.
func (t *Tree) ToLocal(repo *Repo) (*model.LocalTree, error) {
	if err := t.resolve(repo); err != nil {
		return nil, err
	}
	if t.leaf != nil {
		return &model.LocalTree{Contents: t.leaf}, nil
	}

	children := make(map[string]*model.LocalTree, len(t.dir))
	for step, child := range t.dir {
		lt, err := child.ToLocal(repo)
		if err != nil {
			return nil, err
		}
		children[step] = lt
	}
	return &model.LocalTree{Children: children}, nil
}

// Merge performs a three-way merge of base/ours/theirs, persisting all
// three first since the node store merges structurally from stored
// node maps.
func Merge(repo *Repo, base, ours, theirs *Tree) (*Tree, bool, error) {
	baseKey, err := base.Save(repo)
	if err != nil {
		return nil, true, err
	}
	oursKey, err := ours.Save(repo)
	if err != nil {
		return nil, true, err
	}
	theirsKey, err := theirs.Save(repo)
	if err != nil {
		return nil, true, err
	}

	if oursKey.Kind != model.KindNode || theirsKey.Kind != model.KindNode {
		mergedHash, conflict, err := trivialMerge(baseKey.Hash, oursKey.Hash, theirsKey.Hash)
		if err != nil {
			return nil, true, err
		}
		return &Tree{ref: &model.Key{Kind: model.KindContents, Hash: mergedHash}}, conflict, nil
	}

	mergedHash, conflict, err := repo.Nodes.Merge(baseKey.Hash, oursKey.Hash, theirsKey.Hash)
	if err != nil {
		return nil, true, err
	}
	return OfHash(mergedHash), conflict, nil
}

// TreeOp is one step of a Tree.batch_apply request: either setting
// contents, grafting a subtree, or removing whatever is at Path.
type TreeOp struct {
	Kind     TreeOpKind
	Path     model.Path
	Contents model.Contents
	Tree     *Tree
}

// TreeOpKind selects which mutation a TreeOp performs.
type TreeOpKind uint8

const (
	// TreeOpAdd sets Contents at Path.
	TreeOpAdd TreeOpKind = iota
	// TreeOpAddTree grafts Tree at Path.
	TreeOpAddTree
	// TreeOpRemove clears whatever is at Path.
	TreeOpRemove
)

// BatchApply applies ops in order, returning the resulting tree.
func (t *Tree) BatchApply(repo *Repo, ops []TreeOp) (*Tree, error) {
	cur := t
	for _, op := range ops {
		var err error
		switch op.Kind {
		case TreeOpAdd:
			cur, err = cur.Add(repo, op.Path, op.Contents)
		case TreeOpAddTree:
			cur, err = cur.AddTree(repo, op.Path, op.Tree)
		case TreeOpRemove:
			cur, err = cur.Remove(repo, op.Path)
		}
		if err != nil {
			return nil, err
		}
	}
	return cur, nil
}
