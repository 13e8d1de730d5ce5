package merkle_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/minimax-worker/pkg/merkle"
)

// storerBehavior runs the contract every Storer implementation must satisfy.
func storerBehavior(newStorer func() merkle.Storer) {
	var (
		storer merkle.Storer
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		storer = newStorer()
	})

	AfterEach(func() {
		Expect(storer.Close()).To(Succeed())
	})

	put := func(nodes ...*merkle.Node) {
		for _, n := range nodes {
			Expect(storer.Put(ctx, n)).To(Succeed())
		}
	}

	Describe("Put and Get", func() {
		It("stores and retrieves a node", func() {
			node := merkle.NewNode(user("test content"), nil)
			put(node)

			retrieved, err := storer.Get(ctx, node.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.Hash).To(Equal(node.Hash))
			Expect(retrieved.Content).To(Equal(node.Content))
			Expect(retrieved.ParentHash).To(BeNil())
			Expect(retrieved.Verify()).To(BeTrue())
		})

		It("stores and retrieves a node with parent", func() {
			parent := merkle.NewNode(user("parent"), nil)
			child := merkle.NewNode(bot("child"), parent)
			put(parent, child)

			retrieved, err := storer.Get(ctx, child.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.ParentHash).NotTo(BeNil())
			Expect(*retrieved.ParentHash).To(Equal(parent.Hash))
		})

		It("round-trips usage on reply nodes", func() {
			content := bot("reply")
			content.TotalTokens = 42
			node := merkle.NewNode(content, nil)
			put(node)

			retrieved, err := storer.Get(ctx, node.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(retrieved.Content.TotalTokens).To(Equal(42))
		})

		It("returns ErrNotFound for non-existent hash", func() {
			_, err := storer.Get(ctx, "nonexistent")
			Expect(err).To(HaveOccurred())
			Expect(merkle.IsNotFound(err)).To(BeTrue())
		})

		It("is idempotent for duplicate puts", func() {
			node := merkle.NewNode(user("test"), nil)
			put(node, node)

			nodes, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(HaveLen(1))
		})

		It("rejects nil nodes", func() {
			err := storer.Put(ctx, nil)
			Expect(err).To(MatchError(merkle.ErrNilNode))
		})
	})

	Describe("Has", func() {
		It("returns true for existing node", func() {
			node := merkle.NewNode(user("test"), nil)
			put(node)

			exists, err := storer.Has(ctx, node.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeTrue())
		})

		It("returns false for non-existent hash", func() {
			exists, err := storer.Has(ctx, "nonexistent")
			Expect(err).NotTo(HaveOccurred())
			Expect(exists).To(BeFalse())
		})
	})

	Describe("GetByParent", func() {
		It("returns children of a parent", func() {
			parent := merkle.NewNode(user("parent"), nil)
			child1 := merkle.NewNode(bot("child1"), parent)
			child2 := merkle.NewNode(bot("child2"), parent)
			put(parent, child1, child2)

			children, err := storer.GetByParent(ctx, &parent.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(children).To(HaveLen(2))
		})

		It("returns root nodes when parentHash is nil", func() {
			root1 := merkle.NewNode(user("root1"), nil)
			root2 := merkle.NewNode(user("root2"), nil)
			child := merkle.NewNode(bot("child"), root1)
			put(root1, root2, child)

			roots, err := storer.GetByParent(ctx, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(roots).To(HaveLen(2))
		})
	})

	Describe("List", func() {
		It("returns all nodes in insertion order", func() {
			node1 := merkle.NewNode(user("node1"), nil)
			node2 := merkle.NewNode(bot("node2"), node1)
			node3 := merkle.NewNode(user("node3"), node2)
			put(node1, node2, node3)

			nodes, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(HaveLen(3))
			Expect(nodes[0].Hash).To(Equal(node1.Hash))
			Expect(nodes[2].Hash).To(Equal(node3.Hash))
		})

		It("returns empty slice for empty store", func() {
			nodes, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(BeEmpty())
		})
	})

	Describe("Roots and Leaves", func() {
		It("returns all root nodes", func() {
			root1 := merkle.NewNode(user("root1"), nil)
			root2 := merkle.NewNode(user("root2"), nil)
			child := merkle.NewNode(bot("child"), root1)
			put(root1, root2, child)

			roots, err := storer.Roots(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(roots).To(HaveLen(2))
		})

		It("returns all leaf nodes", func() {
			root := merkle.NewNode(user("root"), nil)
			child := merkle.NewNode(bot("child"), root)
			leaf := merkle.NewNode(user("leaf"), child)
			put(root, child, leaf)

			leaves, err := storer.Leaves(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(leaves).To(HaveLen(1))
			Expect(leaves[0].Hash).To(Equal(leaf.Hash))
		})
	})

	Describe("Traversal", func() {
		var root, child, grandchild *merkle.Node

		BeforeEach(func() {
			root = merkle.NewNode(user("root"), nil)
			child = merkle.NewNode(bot("child"), root)
			grandchild = merkle.NewNode(user("grandchild"), child)
			put(root, child, grandchild)
		})

		It("returns ancestry from node to root", func() {
			ancestry, err := storer.Ancestry(ctx, grandchild.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(ancestry).To(HaveLen(3))
			Expect(ancestry[0].Content.Text).To(Equal("grandchild"))
			Expect(ancestry[1].Content.Text).To(Equal("child"))
			Expect(ancestry[2].Content.Text).To(Equal("root"))
		})

		It("returns descendants from root to node", func() {
			path, err := storer.Descendants(ctx, grandchild.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(HaveLen(3))
			Expect(path[0].Content.Text).To(Equal("root"))
			Expect(path[2].Content.Text).To(Equal("grandchild"))
		})

		It("returns depth", func() {
			depth, err := storer.Depth(ctx, root.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(depth).To(Equal(0))

			depth, err = storer.Depth(ctx, grandchild.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(depth).To(Equal(2))
		})

		It("reports unknown hashes as not found", func() {
			_, err := storer.Ancestry(ctx, "nonexistent")
			Expect(merkle.IsNotFound(err)).To(BeTrue())

			_, err = storer.Depth(ctx, "nonexistent")
			Expect(merkle.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("Content-addressable deduplication", func() {
		It("shares a conversation prefix and branches on a different reply", func() {
			question := merkle.NewNode(user("what is 2+2?"), nil)
			reply1 := merkle.NewNode(bot("4"), question)
			reply2 := merkle.NewNode(bot("four"), merkle.NewNode(user("what is 2+2?"), nil))
			put(question, reply1, reply2)

			nodes, err := storer.List(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(nodes).To(HaveLen(3))

			children, err := storer.GetByParent(ctx, &question.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(children).To(HaveLen(2))

			leaves, err := storer.Leaves(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(leaves).To(HaveLen(2))
		})
	})
}

var _ = Describe("MemoryStorer", func() {
	storerBehavior(func() merkle.Storer { return merkle.NewMemoryStorer() })

	It("returns copies that callers cannot use to corrupt the store", func() {
		ctx := context.Background()
		s := merkle.NewMemoryStorer()
		node := merkle.NewNode(user("original"), nil)
		Expect(s.Put(ctx, node)).To(Succeed())

		got, err := s.Get(ctx, node.Hash)
		Expect(err).NotTo(HaveOccurred())
		got.Content.Text = "changed"

		again, err := s.Get(ctx, node.Hash)
		Expect(err).NotTo(HaveOccurred())
		Expect(again.Content.Text).To(Equal("original"))
		Expect(s.Len()).To(Equal(1))
	})
})

var _ = Describe("SQLiteStorer", func() {
	storerBehavior(func() merkle.Storer {
		s, err := merkle.NewSQLiteStorer(":memory:")
		Expect(err).NotTo(HaveOccurred())
		return s
	})

	It("creates a storer with file database", func() {
		dbPath := filepath.Join(GinkgoT().TempDir(), "transcripts.db")

		s, err := merkle.NewSQLiteStorer(dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		_, err = os.Stat(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	It("keeps nodes across reopen", func() {
		ctx := context.Background()
		dbPath := filepath.Join(GinkgoT().TempDir(), "transcripts.db")
		node := merkle.NewNode(user("persisted"), nil)

		s, err := merkle.NewSQLiteStorer(dbPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Put(ctx, node)).To(Succeed())
		Expect(s.Close()).To(Succeed())

		s, err = merkle.NewSQLiteStorer(dbPath)
		Expect(err).NotTo(HaveOccurred())
		defer s.Close()

		exists, err := s.Has(ctx, node.Hash)
		Expect(err).NotTo(HaveOccurred())
		Expect(exists).To(BeTrue())
	})
})
