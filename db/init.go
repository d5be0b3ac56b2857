package db

import (
	"context"

	"github.com/SaiNageswarS/go-api-boot/odm"
)

func InitRabbitholeDB(ctx context.Context, mongo odm.MongoClient, tenant string) error {
	return odm.EnsureIndexes[SearchModel](ctx, mongo, tenant)
}
