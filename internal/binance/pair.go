package binance

import "context"

// Pair identifies one traded symbol's location in the bucket: the key
// prefix under which its archive objects live, and its short display name
// derived from the last path segment (e.g. "BTCUSDC").
type Pair struct {
	Prefix string
	Name   string
}

// checksumSuffix is appended to an archive's object key to form its
// companion checksum object's key.
const checksumSuffix = ".CHECKSUM"

// GetFiles lists the bucket shallowly under the pair's prefix and pairs
// each archive object with its checksum object into a FileCollection.
// Listing concurrency across pairs is the caller's responsibility.
func (p Pair) GetFiles(ctx context.Context, bucket *Bucket) (FileCollection, error) {
	objects, err := bucket.ListObjects(ctx, p.Prefix)
	if err != nil {
		return FileCollection{}, err
	}

	files, err := FileCollectionFromObjects(p.Name, objects, checksumSuffix)
	if err != nil {
		return FileCollection{}, err
	}
	return files, nil
}
