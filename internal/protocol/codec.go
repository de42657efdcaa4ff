package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MaxFrameBytes 는 단일 CONNECT 프레임의 최대 크기입니다.
// 종결자를 보내지 않고 버퍼만 키우는 클라이언트로부터 메모리를 보호하기 위해,
// 누적 버퍼가 이 크기에 도달하면 종결자 유무와 무관하게 디코드를 실패시킵니다.
const MaxFrameBytes = 1024

const (
	connectPrefix   = "CONNECT "
	requestTrailer  = " HTTP/1.1\r\n"
	lineTerminator  = "\r\n"
	statusPrefix    = "HTTP/1.1 "
	responseTrailer = "\r\n\r\n"
)

// 디코드 실패 종류. 모두 세션 종료 사유이며, 클라이언트에는 아무 응답도 쓰지 않습니다.
var (
	// ErrFrameTooLarge 는 누적 버퍼가 MaxFrameBytes 에 도달한 경우입니다.
	ErrFrameTooLarge = errors.New("http frame too large")

	// ErrInvalidRequest 는 CONNECT 접두사 또는 " HTTP/1.1\r\n" 종결자가 없는 경우입니다.
	ErrInvalidRequest = errors.New("invalid connect request")

	// ErrInvalidTargetEncoding 은 목적지 문자열이 UTF-8 이 아닌 경우입니다.
	ErrInvalidTargetEncoding = errors.New("connect target is not valid utf-8")
)

// ErrInvalidResponse 는 클라이언트가 받은 상태 라인이 형식에 맞지 않는 경우입니다.
var ErrInvalidResponse = errors.New("invalid status line")

// DecodeConnect 는 누적 버퍼에서 CONNECT 요청 한 건을 디코드합니다.
//
// 버퍼는 호출자가 소켓에서 읽은 바이트를 이어붙이며 소유하고, 완전한 프레임이
// 모일 때까지 같은 버퍼로 반복 호출할 수 있습니다. 버퍼 끝이 "\r\n" 이 아니면
// (대상 없음, 오류 없음) 으로 반환해 "아직 부족함" 을 알립니다.
//
// 프레임이 완성되면 버퍼 전체가 한 프레임으로 소비됩니다. 첫 줄 뒤에 붙은
// 헤더 라인들은 프레임에 포함되지만 개별적으로 해석하지 않습니다.
// DecodeConnect decodes one CONNECT request from the accumulated buffer,
// returning ok=false with a nil error while the frame is still incomplete.
func DecodeConnect(buf []byte) (target string, ok bool, err error) {
	if len(buf) >= MaxFrameBytes {
		return "", false, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, len(buf), MaxFrameBytes)
	}
	if !bytes.HasSuffix(buf, []byte(lineTerminator)) {
		// 아직 프레임이 완성되지 않음
		return "", false, nil
	}
	if !bytes.HasPrefix(buf, []byte(connectPrefix)) {
		return "", false, fmt.Errorf("%w: missing %q prefix", ErrInvalidRequest, connectPrefix)
	}

	rest := buf[len(connectPrefix):]
	idx := bytes.Index(rest, []byte(requestTrailer))
	if idx < 0 {
		return "", false, fmt.Errorf("%w: missing %q", ErrInvalidRequest, "HTTP/1.1")
	}

	raw := rest[:idx]
	if !utf8.Valid(raw) {
		return "", false, ErrInvalidTargetEncoding
	}
	return string(raw), true, nil
}

// EncodeResult 는 TunnelResult 를 상태 라인으로 인코딩해 w 에 기록합니다.
// 형식은 항상 "HTTP/1.1 <code> <reason>\r\n\r\n" 이며, 같은 값은 항상
// 동일한 바이트를 생성합니다. 실패는 하위 write 오류뿐입니다.
func EncodeResult(w io.Writer, res TunnelResult) error {
	code, reason := res.Status()
	if _, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n\r\n", code, reason); err != nil {
		return fmt.Errorf("connect codec: write status line: %w", err)
	}
	return nil
}

// EncodeConnect 는 CONNECT 요청 한 건을 w 에 기록합니다. 진단 클라이언트가
// 사용하며, DecodeConnect 가 받아들이는 "CONNECT <target> HTTP/1.1\r\n"
// 형식을 생성합니다. CR/LF 를 포함한 목적지는 프레임을 깨뜨리므로 거부합니다.
func EncodeConnect(w io.Writer, target string) error {
	if target == "" || strings.ContainsAny(target, lineTerminator) || !utf8.ValidString(target) {
		return fmt.Errorf("connect codec: unencodable target %q", target)
	}
	if _, err := fmt.Fprintf(w, "%s%s%s", connectPrefix, target, requestTrailer); err != nil {
		return fmt.Errorf("connect codec: write request line: %w", err)
	}
	return nil
}

// DecodeResult 는 누적 버퍼에서 상태 라인 한 건을 디코드합니다.
// EncodeResult 가 생성하는 "HTTP/1.1 <code> <reason>\r\n\r\n" 형식을 기대하며,
// 빈 줄이 도착하기 전까지는 (0, "", false, nil) 로 "아직 부족함" 을 알립니다.
// 버퍼 전체가 한 프레임으로 소비되므로, 호출자는 상태 라인 이후의 중계
// 바이트를 같은 버퍼에 읽어 넣지 않아야 합니다.
func DecodeResult(buf []byte) (code int, reason string, ok bool, err error) {
	if len(buf) >= MaxFrameBytes {
		return 0, "", false, fmt.Errorf("%w: %d bytes (max %d)", ErrFrameTooLarge, len(buf), MaxFrameBytes)
	}
	if !bytes.HasSuffix(buf, []byte(responseTrailer)) {
		return 0, "", false, nil
	}
	if !bytes.HasPrefix(buf, []byte(statusPrefix)) {
		return 0, "", false, fmt.Errorf("%w: missing %q prefix", ErrInvalidResponse, statusPrefix)
	}

	end := bytes.Index(buf, []byte(lineTerminator))
	line := string(buf[len(statusPrefix):end])
	codeStr, reasonStr, found := strings.Cut(line, " ")
	if !found || reasonStr == "" {
		return 0, "", false, fmt.Errorf("%w: missing reason phrase", ErrInvalidResponse)
	}
	n, convErr := strconv.Atoi(codeStr)
	if convErr != nil {
		return 0, "", false, fmt.Errorf("%w: bad status code %q", ErrInvalidResponse, codeStr)
	}
	return n, reasonStr, true, nil
}
