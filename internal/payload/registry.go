package payload

import (
	"fmt"

	"ghostdagcore/internal/types"
)

func init() {
	types.PayloadDecoder = decode
}

func decode(tag types.PayloadTag, raw []byte) (types.Payload, error) {
	switch tag {
	case types.PayloadTransfer:
		return unmarshalTransferPayload(raw)
	case types.PayloadContractDeploy:
		return unmarshalContractDeployPayload(raw)
	case types.PayloadContractInvoke:
		return unmarshalContractInvokePayload(raw)
	case types.PayloadKYCCommit:
		return unmarshalKYCPayload(raw)
	case types.PayloadKYCCommitteeApprove:
		return unmarshalKYCCommitteeApprovePayload(raw)
	case types.PayloadArbitrationOpen:
		return unmarshalArbitrationOpenPayload(raw)
	case types.PayloadArbitrationVote:
		return unmarshalArbitrationVotePayload(raw)
	case types.PayloadArbitrationSlash:
		return unmarshalArbitrationSlashPayload(raw)
	case types.PayloadNFTMint:
		return unmarshalNFTMintPayload(raw)
	case types.PayloadNFTTransfer:
		return unmarshalNFTTransferPayload(raw)
	case types.PayloadStakeFreeze:
		return unmarshalStakeFreezePayload(raw)
	case types.PayloadStakeUnfreeze:
		return unmarshalStakeUnfreezePayload(raw)
	case types.PayloadEnergyConsume:
		return unmarshalEnergyConsumePayload(raw)
	case types.PayloadTNSRegister:
		return unmarshalTNSRegisterPayload(raw)
	case types.PayloadTNSRenew:
		return unmarshalTNSRenewPayload(raw)
	case types.PayloadReferral:
		return unmarshalReferralPayload(raw)
	default:
		return nil, fmt.Errorf("payload: unknown payload tag %d", tag)
	}
}
