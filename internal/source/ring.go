package source

import "fmt"

// ringLayout picks a TPACKET frame size for snapLen and checks it against the
// configured block size. Blocks must be page aligned and hold whole frames.
func ringLayout(snapLen, blockSize, numBlocks, pageSize int) (frameSize int, err error) {
	if snapLen <= 0 || blockSize <= 0 || numBlocks <= 0 || pageSize <= 0 {
		return 0, fmt.Errorf("invalid ring geometry: snap_len=%d block_size=%d num_blocks=%d",
			snapLen, blockSize, numBlocks)
	}
	if snapLen < pageSize {
		frameSize = pageSize / (pageSize / snapLen)
	} else {
		frameSize = (snapLen/pageSize + 1) * pageSize
	}
	if blockSize%pageSize != 0 {
		return 0, fmt.Errorf("block_size %d is not a multiple of the page size %d", blockSize, pageSize)
	}
	if blockSize%frameSize != 0 {
		return 0, fmt.Errorf("block_size %d is not a multiple of the frame size %d", blockSize, frameSize)
	}
	return frameSize, nil
}
