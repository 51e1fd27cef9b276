//go:build cgo

package openjpeg

/*
#cgo pkg-config: libopenjp2
#include <stdlib.h>
#include <string.h>
#include <openjpeg.h>

#define OPJGO_ERRLEN 512

typedef struct {
	const OPJ_UINT8 *data;
	OPJ_SIZE_T size;
	OPJ_SIZE_T off;
} opjgo_buffer;

static OPJ_SIZE_T opjgo_read(void *dst, OPJ_SIZE_T n, void *user) {
	opjgo_buffer *b = (opjgo_buffer *)user;
	OPJ_SIZE_T left;

	if (b->off >= b->size) {
		return (OPJ_SIZE_T)-1;
	}
	left = b->size - b->off;
	if (n > left) {
		n = left;
	}
	memcpy(dst, b->data + b->off, n);
	b->off += n;
	return n;
}

static OPJ_OFF_T opjgo_skip(OPJ_OFF_T n, void *user) {
	opjgo_buffer *b = (opjgo_buffer *)user;
	OPJ_OFF_T off = (OPJ_OFF_T)b->off;

	if (off + n < 0) {
		n = -off;
	} else if (off + n > (OPJ_OFF_T)b->size) {
		n = (OPJ_OFF_T)b->size - off;
	}
	b->off = (OPJ_SIZE_T)(off + n);
	return n;
}

static OPJ_BOOL opjgo_seek(OPJ_OFF_T n, void *user) {
	opjgo_buffer *b = (opjgo_buffer *)user;

	if (n < 0 || (OPJ_SIZE_T)n > b->size) {
		return OPJ_FALSE;
	}
	b->off = (OPJ_SIZE_T)n;
	return OPJ_TRUE;
}

static opj_stream_t *opjgo_stream(opjgo_buffer *b) {
	opj_stream_t *s = opj_stream_create(OPJ_J2K_STREAM_CHUNK_SIZE, OPJ_TRUE);
	if (s == NULL) {
		return NULL;
	}
	opj_stream_set_user_data(s, b, NULL);
	opj_stream_set_user_data_length(s, (OPJ_UINT64)b->size);
	opj_stream_set_read_function(s, opjgo_read);
	opj_stream_set_skip_function(s, opjgo_skip);
	opj_stream_set_seek_function(s, opjgo_seek);
	return s;
}

static void opjgo_error(const char *msg, void *client) {
	char *buf = (char *)client;
	strncpy(buf, msg, OPJGO_ERRLEN - 1);
	buf[OPJGO_ERRLEN - 1] = '\0';
}

static opj_codec_t *opjgo_codec(int jp2, char *errbuf) {
	opj_codec_t *c = opj_create_decompress(jp2 ? OPJ_CODEC_JP2 : OPJ_CODEC_J2K);
	if (c != NULL) {
		opj_set_error_handler(c, opjgo_error, errbuf);
	}
	return c;
}
*/
import "C"

import (
	"fmt"
	"image"
	"strings"
	"unsafe"
)

// Version returns the version string of the linked libopenjp2.
func Version() string {
	return C.GoString(C.opj_version())
}

// session owns every native object of one decode. All memory handed to
// libopenjp2 is C-allocated so no Go pointers cross the boundary.
type session struct {
	data   unsafe.Pointer
	buf    *C.opjgo_buffer
	errbuf *C.char
	stream *C.opj_stream_t
	codec  *C.opj_codec_t
	image  *C.opj_image_t
}

func openSession(data []byte, format codecFormat) (*session, error) {
	s := &session{
		data:   C.CBytes(data),
		buf:    (*C.opjgo_buffer)(C.calloc(1, C.size_t(C.sizeof_opjgo_buffer))),
		errbuf: (*C.char)(C.calloc(C.size_t(C.OPJGO_ERRLEN), 1)),
	}
	s.buf.data = (*C.OPJ_UINT8)(s.data)
	s.buf.size = C.OPJ_SIZE_T(len(data))

	s.stream = C.opjgo_stream(s.buf)
	if s.stream == nil {
		s.close()
		return nil, fmt.Errorf("create stream: %w", ErrDecodeFailed)
	}

	jp2 := C.int(0)
	if format == formatJP2 {
		jp2 = 1
	}
	s.codec = C.opjgo_codec(jp2, s.errbuf)
	if s.codec == nil {
		s.close()
		return nil, fmt.Errorf("create codec: %w", ErrDecodeFailed)
	}
	return s, nil
}

func (s *session) close() {
	if s.stream != nil {
		C.opj_stream_destroy(s.stream)
	}
	if s.codec != nil {
		C.opj_destroy_codec(s.codec)
	}
	if s.image != nil {
		C.opj_image_destroy(s.image)
	}
	C.free(unsafe.Pointer(s.buf))
	C.free(s.data)
	C.free(unsafe.Pointer(s.errbuf))
}

// fail wraps ErrDecodeFailed with the last message libopenjp2 reported.
func (s *session) fail(stage string) error {
	msg := strings.TrimSpace(C.GoString(s.errbuf))
	if msg == "" {
		return fmt.Errorf("%s: %w", stage, ErrDecodeFailed)
	}
	return fmt.Errorf("%s: %w: %s", stage, ErrDecodeFailed, msg)
}

func (s *session) readHeader(opts DecodeOptions) error {
	var params C.opj_dparameters_t
	C.opj_set_default_decoder_parameters(&params)
	params.cp_reduce = C.OPJ_UINT32(opts.Reduce)
	params.cp_layer = C.OPJ_UINT32(opts.MaxLayers)

	if C.opj_setup_decoder(s.codec, &params) == 0 {
		return s.fail("setup decoder")
	}
	if opts.Threads > 1 && C.opj_has_thread_support() != 0 {
		if C.opj_codec_set_threads(s.codec, C.int(opts.Threads)) == 0 {
			return s.fail("set threads")
		}
	}
	if C.opj_read_header(s.stream, s.codec, &s.image) == 0 {
		return s.fail("read header")
	}
	return nil
}

func (s *session) decode(area image.Rectangle) error {
	if !area.Empty() {
		ok := C.opj_set_decode_area(s.codec, s.image,
			C.OPJ_INT32(area.Min.X), C.OPJ_INT32(area.Min.Y),
			C.OPJ_INT32(area.Max.X), C.OPJ_INT32(area.Max.Y))
		if ok == 0 {
			return s.fail("set decode area")
		}
	}
	if C.opj_decode(s.codec, s.stream, s.image) == 0 {
		return s.fail("decode")
	}
	if C.opj_end_decompress(s.codec, s.stream) == 0 {
		return s.fail("end decompress")
	}
	return nil
}

// export copies the native image into Go memory. Samples are copied only
// when withSamples is set; afterwards Plane is nil.
func (s *session) export(withSamples bool) (*Image, error) {
	ci := s.image
	img := &Image{
		Bounds:     image.Rect(int(ci.x0), int(ci.y0), int(ci.x1), int(ci.y1)),
		ColorSpace: ColorSpace(ci.color_space),
	}
	if ci.icc_profile_buf != nil && ci.icc_profile_len > 0 {
		img.ICCProfile = C.GoBytes(unsafe.Pointer(ci.icc_profile_buf), C.int(ci.icc_profile_len))
	}
	if ci.numcomps == 0 || ci.comps == nil {
		return nil, ErrNoComponents
	}

	comps := unsafe.Slice(ci.comps, int(ci.numcomps))
	img.Components = make([]Component, len(comps))
	for i := range comps {
		cc := &comps[i]
		c := Component{
			Width:     int(cc.w),
			Height:    int(cc.h),
			DX:        int(cc.dx),
			DY:        int(cc.dy),
			Precision: int(cc.prec),
			Signed:    cc.sgnd != 0,
		}
		if withSamples {
			if cc.data == nil {
				return nil, fmt.Errorf("component %d has no samples: %w", i, ErrDecodeFailed)
			}
			samples := unsafe.Slice((*int32)(unsafe.Pointer(cc.data)), c.Width*c.Height)
			c.Plane = planeFromSamples(samples, c.Width, c.Height)
		}
		img.Components[i] = c
	}
	return img, nil
}

func nativeDecode(data []byte, format codecFormat, opts DecodeOptions) (*Image, error) {
	s, err := openSession(data, format)
	if err != nil {
		return nil, err
	}
	defer s.close()

	if err := s.readHeader(opts); err != nil {
		return nil, err
	}
	if err := s.decode(opts.Area); err != nil {
		return nil, err
	}
	return s.export(true)
}

func nativeReadHeader(data []byte, format codecFormat) (*Image, error) {
	s, err := openSession(data, format)
	if err != nil {
		return nil, err
	}
	defer s.close()

	if err := s.readHeader(DecodeOptions{}); err != nil {
		return nil, err
	}
	return s.export(false)
}
