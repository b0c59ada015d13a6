package totp

import "time"

// Bucket returns floor(epochSeconds / interval). A zero interval yields 0.
func Bucket(epochSeconds, interval uint64) uint64 {
	if interval == 0 {
		return 0
	}
	return epochSeconds / interval
}

// BucketStart returns the first instant of bucket.
func BucketStart(bucket, interval uint64) time.Time {
	return time.Unix(int64(bucket*interval), 0).UTC()
}
