package codec

import (
	"github.com/sonatago/sonata/format"
	"github.com/sonatago/sonata/sonataerr"
)

func unsupportedCodec(id format.CodecID) *sonataerr.Error {
	return sonataerr.Unsupportedf("codec: no decoder registered for codec id %d", id)
}
