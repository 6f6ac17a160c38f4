package zk

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	coordinator "streakd/internal/coordinator/iface"
	"streakd/internal/logger"

	"github.com/go-zookeeper/zk"
)

type zkCoordinator struct {
	conn   *zk.Conn
	logger logger.Logger
}

// zkLogger routes the client library's chatter through our logger
type zkLogger struct {
	log logger.Logger
}

func (l zkLogger) Printf(format string, args ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, args...))
}

// NewZKCoordinator connects to the ensemble
func NewZKCoordinator(servers []string, sessionTimeout time.Duration, log logger.Logger) (coordinator.Coordinator, error) {
	log = log.With(logger.String("component", "zk_coordinator"))

	conn, _, err := zk.Connect(servers, sessionTimeout, zk.WithLogger(zkLogger{log: log}))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to zookeeper: %w", err)
	}

	log.Info("connected to zookeeper", logger.Any("servers", servers))

	return &zkCoordinator{conn: conn, logger: log}, nil
}

func (c *zkCoordinator) EnsureNode(p string, data []byte) error {
	if err := c.ensureParents(p); err != nil {
		return err
	}

	_, err := c.conn.Create(p, data, 0, zk.WorldACL(zk.PermAll))
	if err != nil {
		if errors.Is(err, zk.ErrNodeExists) {
			c.logger.Debug("node already exists", logger.String("path", p))
			return nil
		}
		return fmt.Errorf("failed to create node %s: %w", p, err)
	}

	c.logger.Info("created zk node", logger.String("path", p))
	return nil
}

func (c *zkCoordinator) GetNode(p string) ([]byte, error) {
	data, _, err := c.conn.Get(p)
	if err != nil {
		if errors.Is(err, zk.ErrNoNode) {
			return nil, fmt.Errorf("%w: %s", coordinator.ErrNodeNotFound, p)
		}
		return nil, fmt.Errorf("failed to get node %s: %w", p, err)
	}
	return data, nil
}

func (c *zkCoordinator) SetNode(p string, data []byte) error {
	// version -1 matches any version; last writer wins
	_, err := c.conn.Set(p, data, -1)
	if errors.Is(err, zk.ErrNoNode) {
		return c.EnsureNode(p, data)
	}
	if err != nil {
		return fmt.Errorf("failed to update node %s: %w", p, err)
	}

	c.logger.Info("updated zk node", logger.String("path", p))
	return nil
}

func (c *zkCoordinator) WatchNode(ctx context.Context, p string, handler func([]byte)) error {
	data, _, events, err := c.conn.GetW(p)
	if err != nil {
		return fmt.Errorf("failed to watch node %s: %w", p, err)
	}
	handler(data)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}
				if event.Type == zk.EventNotWatching {
					c.logger.Warn("zk watch dropped", logger.String("path", p))
				}
			}

			// watches are one-shot: re-arm and deliver whatever is there now
			for {
				data, _, events, err = c.conn.GetW(p)
				if err == nil {
					break
				}
				c.logger.Error("failed to re-arm watch",
					logger.String("path", p),
					logger.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(time.Second):
				}
			}

			c.logger.Debug("zk node changed", logger.String("path", p))
			handler(data)
		}
	}()

	return nil
}

func (c *zkCoordinator) Close() error {
	c.logger.Info("closing zookeeper connection")
	c.conn.Close()
	return nil
}

func (c *zkCoordinator) ensureParents(p string) error {
	parent := path.Dir(p)
	if parent == "/" || parent == "." {
		return nil
	}

	exists, _, err := c.conn.Exists(parent)
	if err != nil {
		return fmt.Errorf("failed to check parent path %s: %w", parent, err)
	}
	if exists {
		return nil
	}

	if err := c.ensureParents(parent); err != nil {
		return err
	}
	_, err = c.conn.Create(parent, []byte{}, 0, zk.WorldACL(zk.PermAll))
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return fmt.Errorf("failed to create parent path %s: %w", parent, err)
	}
	return nil
}
