package clients

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/valkey-io/valkey-go"
)

var (
	valkeyInstance *ValkeyClient
	valkeyOnce     sync.Once
)

const (
	VALKEY_AVATARS_KEY      = "photobot:avatars"
	VALKEY_USED_PHOTOS_KEY  = "photobot:used_photos:"
	VALKEY_USED_PHOTO_TTL   = 24 * time.Hour
	VALKEY_COMMAND_RETRIES  = 3
	VALKEY_RETRY_SLEEP      = 250 * time.Millisecond
	VALKEY_CONNECT_DEADLINE = 3 * time.Second
)

type ValkeyConfig struct {
	Address  string
	Password string
	TLS      bool
}

// ValkeyClient backs the avatar registry and the used-photo tracker.
type ValkeyClient struct {
	Client valkey.Client
	cfg    ValkeyConfig
	mu     sync.Mutex
}

func InitValkey(cfg ValkeyConfig) (*ValkeyClient, error) {
	var initErr error
	valkeyOnce.Do(func() {
		client, err := connectValkey(cfg)
		if err != nil {
			initErr = err
			return
		}
		slog.Info("[ValkeyClient] Successfully connected to valkey",
			slog.String("address", cfg.Address))
		valkeyInstance = &ValkeyClient{Client: client, cfg: cfg}
	})
	if initErr != nil {
		return nil, initErr
	}
	if valkeyInstance == nil {
		return nil, fmt.Errorf("[ValkeyClient] client is not initialized")
	}
	return valkeyInstance, nil
}

func connectValkey(cfg ValkeyConfig) (valkey.Client, error) {
	opts := valkey.ClientOption{
		InitAddress:      []string{cfg.Address},
		Password:         cfg.Password,
		ConnWriteTimeout: 5 * time.Second,
		SelectDB:         0,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	}

	client, err := valkey.NewClient(opts)
	if err != nil {
		return nil, fmt.Errorf("[ValkeyClient] failed to create Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), VALKEY_CONNECT_DEADLINE)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("[ValkeyClient] failed to ping Valkey: %w", err)
	}
	return client, nil
}

func (vc *ValkeyClient) recreateClient() {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	slog.Warn("[ValkeyClient] Attempting to recreate Valkey client...")
	client, err := connectValkey(vc.cfg)
	if err != nil {
		slog.Error("[ValkeyClient] Recreate failed", slog.String("error", err.Error()))
		return
	}
	vc.Client.Close()
	vc.Client = client
	slog.Info("[ValkeyClient] Successfully reconnected to valkey")
}

func CloseValkey() {
	if valkeyInstance != nil {
		valkeyInstance.Client.Close()
	}
}

// ClaimAvatar adds ref to the set of issued avatars and reports whether it was
// new. A false result means the avatar was issued before.
func (vc *ValkeyClient) ClaimAvatar(ctx context.Context, ref string) (bool, error) {
	res := vc.DoWithRetry(ctx, vc.Client.B().Sadd().Key(VALKEY_AVATARS_KEY).Member(ref).Build(), VALKEY_COMMAND_RETRIES)
	added, err := res.AsInt64()
	if err != nil {
		return false, fmt.Errorf("[ValkeyClient] failed to claim avatar: %w", err)
	}
	return added == 1, nil
}

// SeedAvatars records avatars issued by personas loaded from the store.
func (vc *ValkeyClient) SeedAvatars(ctx context.Context, refs ...string) error {
	if len(refs) == 0 {
		return nil
	}
	res := vc.DoWithRetry(ctx, vc.Client.B().Sadd().Key(VALKEY_AVATARS_KEY).Member(refs...).Build(), VALKEY_COMMAND_RETRIES)
	if err := res.Error(); err != nil {
		return fmt.Errorf("[ValkeyClient] failed to seed avatars: %w", err)
	}
	slog.Info("[ValkeyClient] Seeded avatar registry", slog.Int("count", len(refs)))
	return nil
}

// MarkPhotoUsed remembers a posted photo for 24 hours.
func (vc *ValkeyClient) MarkPhotoUsed(ctx context.Context, key string) error {
	res := vc.DoWithRetry(ctx,
		vc.Client.B().Set().Key(VALKEY_USED_PHOTOS_KEY+key).Value("1").ExSeconds(int64(VALKEY_USED_PHOTO_TTL.Seconds())).Build(),
		VALKEY_COMMAND_RETRIES)
	if err := res.Error(); err != nil {
		return fmt.Errorf("[ValkeyClient] failed to mark photo used: %w", err)
	}
	slog.Debug("[ValkeyClient] Marked photo used", slog.String("key", key))
	return nil
}

func (vc *ValkeyClient) IsPhotoUsed(ctx context.Context, key string) (bool, error) {
	res := vc.DoWithRetry(ctx, vc.Client.B().Exists().Key(VALKEY_USED_PHOTOS_KEY+key).Build(), VALKEY_COMMAND_RETRIES)
	n, err := res.AsInt64()
	if err != nil {
		return false, fmt.Errorf("[ValkeyClient] failed to check photo: %w", err)
	}
	return n > 0, nil
}

func (vc *ValkeyClient) DoWithRetry(ctx context.Context, completed valkey.Completed, retries int) valkey.ValkeyResult {
	var result valkey.ValkeyResult
	completed = completed.Pin()
	for i := 0; i < retries; i++ {
		vc.mu.Lock()
		client := vc.Client
		vc.mu.Unlock()

		result = client.Do(ctx, completed)
		if result.Error() == nil || valkey.IsValkeyNil(result.Error()) {
			break
		}

		slog.Warn("[ValkeyClient] Do failed",
			slog.Int("attempt", i+1),
			slog.String("error", result.Error().Error()))
		if isConnectionError(result.Error()) {
			vc.recreateClient()
		}

		select {
		case <-ctx.Done():
			return result
		case <-time.After(VALKEY_RETRY_SLEEP):
		}
	}

	return result
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "EOF") ||
		strings.Contains(msg, "i/o timeout")
}
