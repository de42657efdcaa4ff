package protocol

// TunnelResult 는 터널 수립 단계의 종료 상태를 표현합니다.
// 각 값은 고정된 HTTP 상태 라인 하나에 대응합니다 (Status 참고).
// 라벨 이름과 HTTP 코드는 의도적으로 통상적인 HTTP 의미와 분리되어 있으며,
// 클라이언트가 관찰하는 것은 아래 테이블의 리터럴 바이트입니다.
type TunnelResult int

const (
	// ResultOK 는 목적지 연결에 성공해 터널이 열렸음을 의미합니다.
	ResultOK TunnelResult = iota

	// ResultBadRequest 는 목적지 연결 데드라인 초과 시 기록되는 값입니다.
	ResultBadRequest

	// ResultForbidden 은 예약된 값입니다. 현재 매핑에서는 생성되지 않습니다.
	ResultForbidden

	// ResultTimeout 은 목적지 연결 실패(거부, 도달 불가 등) 시 기록되는 값입니다.
	// 내부 오류 종류를 클라이언트에 노출하지 않기 위해 모든 연결 실패가 이 값이 됩니다.
	ResultTimeout

	// ResultServerError 는 내부 오류를 의미합니다.
	ResultServerError
)

// Status 는 TunnelResult 별 고정 응답 코드/사유 테이블입니다.
// 알 수 없는 값은 내부 오류로 취급합니다.
func (r TunnelResult) Status() (code int, reason string) {
	switch r {
	case ResultOK:
		return 200, "OK"
	case ResultBadRequest:
		return 400, "BAD_REQUEST"
	case ResultForbidden:
		return 403, "FORBIDDEN"
	case ResultTimeout:
		return 408, "Timeout"
	case ResultServerError:
		return 500, "SERVER_ERROR"
	default:
		return 500, "SERVER_ERROR"
	}
}

// String 은 로그/메트릭 라벨용 소문자 이름을 반환합니다.
func (r TunnelResult) String() string {
	switch r {
	case ResultOK:
		return "ok"
	case ResultBadRequest:
		return "bad_request"
	case ResultForbidden:
		return "forbidden"
	case ResultTimeout:
		return "timeout"
	case ResultServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// Results 는 테이블 완전성 검사(테스트)용으로 모든 TunnelResult 값을 나열합니다.
var Results = []TunnelResult{
	ResultOK,
	ResultBadRequest,
	ResultForbidden,
	ResultTimeout,
	ResultServerError,
}
