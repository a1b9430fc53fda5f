package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// NodeRepository handles database operations for nodes.
type NodeRepository struct {
	DB *sqlx.DB
}

// NewNodeRepository creates a new NodeRepository.
func NewNodeRepository(db *sqlx.DB) *NodeRepository {
	return &NodeRepository{DB: db}
}

// GetAll retrieves all nodes ordered by title.
func (r *NodeRepository) GetAll(ctx context.Context) ([]*Node, error) {
	var nodes []*Node
	if err := r.DB.SelectContext(ctx, &nodes, "SELECT id, title, description FROM nodes ORDER BY title"); err != nil {
		return nil, fmt.Errorf("failed to get nodes: %w", err)
	}
	return nodes, nil
}

// GetByID finds a node by its ID.
func (r *NodeRepository) GetByID(ctx context.Context, id int64) (*Node, error) {
	var node Node
	err := r.DB.GetContext(ctx, &node, "SELECT id, title, description FROM nodes WHERE id = ?", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("node with id %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get node by id: %w", err)
	}
	return &node, nil
}

// Save creates a new node and returns its ID.
func (r *NodeRepository) Save(ctx context.Context, node *Node) (int64, error) {
	res, err := r.DB.NamedExecContext(ctx, "INSERT INTO nodes (title, description) VALUES (:title, :description)", node)
	if err != nil {
		return 0, fmt.Errorf("failed to save node: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	node.ID = id
	return id, nil
}
