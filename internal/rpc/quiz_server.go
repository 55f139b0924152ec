package rpc

import (
	"context"
	"log"

	"quiz-engine/internal/dto"
	"quiz-engine/internal/engine"
	"quiz-engine/internal/service"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "quizengine.v1.QuizEngine"

type StartSessionRequest struct {
	SetID string `json:"set_id"`
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type SelectAnswerRequest struct {
	SessionID string  `json:"session_id"`
	Option    *string `json:"option"`
}

type ListSetsRequest struct{}

type ListResultsRequest struct {
	Limit int `json:"limit"`
}

type QuizEngineServer interface {
	StartSession(context.Context, *StartSessionRequest) (*service.SessionView, error)
	GetState(context.Context, *SessionRequest) (*service.SessionView, error)
	CurrentQuestion(context.Context, *SessionRequest) (*service.QuestionProgress, error)
	SelectAnswer(context.Context, *SelectAnswerRequest) (*service.SessionView, error)
	SubmitAnswer(context.Context, *SessionRequest) (*dto.SubmitAnswerResponse, error)
	Advance(context.Context, *SessionRequest) (*service.SessionView, error)
	Restart(context.Context, *SessionRequest) (*service.SessionView, error)
	Summary(context.Context, *SessionRequest) (*engine.Summary, error)
	EndSession(context.Context, *SessionRequest) (*dto.MessageResponse, error)
	ListSets(context.Context, *ListSetsRequest) (*dto.SetListResponse, error)
	ListResults(context.Context, *ListResultsRequest) (*dto.ResultListResponse, error)
}

// QuizEngineServiceDesc is written by hand; messages travel as JSON through
// the codec registered in codec.go.
var QuizEngineServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*QuizEngineServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("StartSession", QuizEngineServer.StartSession),
		unary("GetState", QuizEngineServer.GetState),
		unary("CurrentQuestion", QuizEngineServer.CurrentQuestion),
		unary("SelectAnswer", QuizEngineServer.SelectAnswer),
		unary("SubmitAnswer", QuizEngineServer.SubmitAnswer),
		unary("Advance", QuizEngineServer.Advance),
		unary("Restart", QuizEngineServer.Restart),
		unary("Summary", QuizEngineServer.Summary),
		unary("EndSession", QuizEngineServer.EndSession),
		unary("ListSets", QuizEngineServer.ListSets),
		unary("ListResults", QuizEngineServer.ListResults),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "quizengine/v1/quiz_engine.json",
}

func RegisterQuizEngineServer(s grpc.ServiceRegistrar, srv QuizEngineServer) {
	s.RegisterService(&QuizEngineServiceDesc, srv)
}

func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

func unary[Req, Resp any](method string, call func(QuizEngineServer, context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}

			handler := func(ctx context.Context, req any) (any, error) {
				out, err := call(srv.(QuizEngineServer), ctx, req.(*Req))
				if err != nil {
					return nil, err
				}
				return out, nil
			}
			if interceptor == nil {
				return handler(ctx, in)
			}

			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: FullMethod(method),
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

type QuizServer struct {
	quizService *service.QuizService
}

func NewQuizServer(quizService *service.QuizService) *QuizServer {
	return &QuizServer{quizService: quizService}
}

func (s *QuizServer) StartSession(ctx context.Context, req *StartSessionRequest) (*service.SessionView, error) {
	view, err := s.quizService.StartSession(ctx, PlayerID(ctx), req.SetID)
	if err != nil {
		return nil, toStatus(err)
	}
	return view, nil
}

func (s *QuizServer) GetState(ctx context.Context, req *SessionRequest) (*service.SessionView, error) {
	view, err := s.quizService.GetState(req.SessionID, PlayerID(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return view, nil
}

func (s *QuizServer) CurrentQuestion(ctx context.Context, req *SessionRequest) (*service.QuestionProgress, error) {
	progress, err := s.quizService.CurrentQuestion(req.SessionID, PlayerID(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return progress, nil
}

func (s *QuizServer) SelectAnswer(ctx context.Context, req *SelectAnswerRequest) (*service.SessionView, error) {
	if req.Option == nil {
		return nil, status.Error(codes.InvalidArgument, "option is required")
	}

	view, err := s.quizService.SelectAnswer(req.SessionID, PlayerID(ctx), *req.Option)
	if err != nil {
		return nil, toStatus(err)
	}
	return view, nil
}

func (s *QuizServer) SubmitAnswer(ctx context.Context, req *SessionRequest) (*dto.SubmitAnswerResponse, error) {
	grade, view, err := s.quizService.SubmitAnswer(req.SessionID, PlayerID(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.SubmitAnswerResponse{Grade: grade, Session: view}, nil
}

func (s *QuizServer) Advance(ctx context.Context, req *SessionRequest) (*service.SessionView, error) {
	view, err := s.quizService.Advance(ctx, req.SessionID, PlayerID(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return view, nil
}

func (s *QuizServer) Restart(ctx context.Context, req *SessionRequest) (*service.SessionView, error) {
	view, err := s.quizService.Restart(req.SessionID, PlayerID(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return view, nil
}

func (s *QuizServer) Summary(ctx context.Context, req *SessionRequest) (*engine.Summary, error) {
	summary, err := s.quizService.Summary(req.SessionID, PlayerID(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	return &summary, nil
}

func (s *QuizServer) EndSession(ctx context.Context, req *SessionRequest) (*dto.MessageResponse, error) {
	if err := s.quizService.EndSession(req.SessionID, PlayerID(ctx)); err != nil {
		return nil, toStatus(err)
	}
	return &dto.MessageResponse{Message: "Session ended"}, nil
}

func (s *QuizServer) ListSets(ctx context.Context, _ *ListSetsRequest) (*dto.SetListResponse, error) {
	sets, err := s.quizService.ListSets(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.SetListResponse{Sets: sets}, nil
}

func (s *QuizServer) ListResults(ctx context.Context, req *ListResultsRequest) (*dto.ResultListResponse, error) {
	results, err := s.quizService.ListResults(ctx, PlayerID(ctx), req.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &dto.ResultListResponse{Results: results}, nil
}

// toStatus keeps the REST error code as the message prefix so clients can
// tell invalid_option from no_answer_selected.
func toStatus(err error) error {
	_, code := dto.Classify(err)

	var grpcCode codes.Code
	switch code {
	case dto.CodeInvalidOption, dto.CodeNoAnswerSelected:
		grpcCode = codes.InvalidArgument
	case dto.CodeIllegalTransition, dto.CodeSessionCompleted, dto.CodeMalformedQuestionSet:
		grpcCode = codes.FailedPrecondition
	case dto.CodeSessionNotFound, dto.CodeSetNotFound:
		grpcCode = codes.NotFound
	case dto.CodeForbidden:
		grpcCode = codes.PermissionDenied
	default:
		log.Printf("gRPC request failed: %v", err)
		return status.Error(codes.Internal, dto.CodeInternal)
	}
	return status.Errorf(grpcCode, "%s: %v", code, err)
}
