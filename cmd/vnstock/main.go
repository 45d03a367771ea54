// Command vnstock acquires Vietnamese minute candles into hive-partitioned
// parquet files.
//
//	vnstock run --run_dttm 20250605
//	vnstock backfill --symbol VN30F --from 20250501 --to 20250630
//	vnstock schedule
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
