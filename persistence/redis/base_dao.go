package redis

import (
	"fmt"
	"strings"

	rd "github.com/redis/go-redis/v9"
)

type Config struct {
	Addrs     []string
	Namespace string
	Password  string
	PoolSize  int
}

type baseDao struct {
	redisClient rd.UniversalClient
	namespace   string
}

func newBaseDao(conf Config) *baseDao {
	redisClient := rd.NewUniversalClient(&rd.UniversalOptions{
		Addrs:    conf.Addrs,
		Password: conf.Password,
		PoolSize: conf.PoolSize,
	})
	return &baseDao{
		redisClient: redisClient,
		namespace:   conf.Namespace,
	}
}

// NewBaseDaoWithClient wires an externally created client. Tests pass a
// client pointed at miniredis.
func newBaseDaoWithClient(client rd.UniversalClient, namespace string) *baseDao {
	return &baseDao{
		redisClient: client,
		namespace:   namespace,
	}
}

func (bs *baseDao) getNamespaceKey(args ...string) string {
	return fmt.Sprintf("%s:%s", bs.namespace, strings.Join(args, ":"))
}
