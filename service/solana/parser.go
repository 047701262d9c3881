package solana

import (
	"strings"
	"time"

	"github.com/brojonat/omniscan/service/explorer"
	"github.com/brojonat/omniscan/service/units"
)

// blockTimeToDate converts an RPC blockTime (epoch seconds) to UTC.
func blockTimeToDate(blockTime *int64) *time.Time {
	if blockTime == nil {
		return nil
	}
	return explorer.TimePtr(time.Unix(*blockTime, 0).UTC())
}

// parseBalance converts a validated getBalance result.
func parseBalance(address string, result *BalanceResult) *explorer.Balance {
	return &explorer.Balance{
		Address: address,
		Balance: units.FromUnit(result.Value, Precision),
	}
}

// parseBalances converts a validated getMultipleAccounts result. The RPC
// does not echo addresses back, so values pair with the request order;
// a missing account is a zero balance.
func parseBalances(addresses []string, result *MultipleAccountsResult) []*explorer.Balance {
	balances := make([]*explorer.Balance, 0, len(result.Value))
	for i, account := range result.Value {
		balance := &explorer.Balance{Balance: units.FromUnit(0, Precision)}
		if i < len(addresses) {
			balance.Address = addresses[i]
		}
		if account != nil {
			balance.Balance = units.FromUnit(account.Lamports, Precision)
		}
		balances = append(balances, balance)
	}
	return balances
}

// parseTxDetails converts a validated getTransaction result into one
// transfer leg per system-transfer instruction that passes the transfer
// validator. The transaction fee repeats on every leg. An instruction of
// a trusted memo program contributes the memo to each emitted leg.
func parseTxDetails(result *TransactionResult) []*explorer.TransferTx {
	fee := units.FromUnit(result.Meta.Fee, Precision)
	date := blockTimeToDate(result.BlockTime)
	memo := extractMemo(result.Transaction.Message.Instructions)

	var transfers []*explorer.TransferTx
	for i, ix := range result.Transaction.Message.Instructions {
		if !ValidateTransfer(ix) {
			continue
		}
		parsed, _ := ix.ParsedTransfer()
		transfers = append(transfers, &explorer.TransferTx{
			TxHash:      result.Transaction.Signatures[0],
			BlockHeight: explorer.Int64Ptr(result.Slot),
			Date:        date,
			Success:     true,
			FromAddress: parsed.Info.Source,
			ToAddress:   parsed.Info.Destination,
			Value:       units.FromUnit(parsed.Info.Lamports, Precision),
			Symbol:      Symbol,
			Memo:        memo,
			TxFee:       explorer.DecimalPtr(fee),
			Index:       explorer.IntPtr(i),
		})
	}
	return transfers
}

// parseAddressTxs filters the legs of a batch of transactions down to the
// ones touching address.
func parseAddressTxs(address string, results []*TransactionResult) []*explorer.TransferTx {
	var transfers []*explorer.TransferTx
	for _, result := range results {
		if !ValidateTransaction(result) {
			continue
		}
		for _, leg := range parseTxDetails(result) {
			if leg.FromAddress != address && leg.ToAddress != address {
				continue
			}
			transfers = append(transfers, leg)
		}
	}
	return transfers
}

// extractMemo returns the first memo carried by a trusted memo program
// instruction, nil when none.
func extractMemo(instructions []Instruction) *string {
	for _, ix := range instructions {
		if ix.ProgramID != MemoProgramV1ID && ix.ProgramID != MemoProgramV2ID {
			continue
		}
		if memo, ok := ix.ParsedMemo(); ok && memo != "" {
			return explorer.StrPtr(memo)
		}
	}
	return nil
}

// parseNativeTransfers reconciles native SOL movements of one block
// transaction from the pre/post balance arrays. The fee payer (first
// account) is the sender; every later account whose balance grew by at
// least the floor is a recipient, except the system and compute-budget
// program accounts, which absorb fees rather than receive deposits.
func parseNativeTransfers(tx *BlockTransaction, blockHeight int64) []*explorer.TransferTx {
	meta := tx.Meta
	keys := tx.Transaction.AccountKeys

	if len(meta.PreBalances) == 0 || len(meta.PostBalances) == 0 || len(meta.PreBalances) != len(keys) {
		return nil
	}

	sender := keys[0].Pubkey
	date := blockTimeToDate(tx.BlockTime)
	txHash := tx.Transaction.Signatures[0]

	var transfers []*explorer.TransferTx
	for i := 1; i < len(keys); i++ {
		recipient := keys[i].Pubkey
		if recipient == SystemProgramID || recipient == ComputeBudgetProgramID {
			continue
		}
		rawValue := meta.PostBalances[i] - meta.PreBalances[i]
		if !ValidateTransferValue(rawValue) {
			continue
		}
		transfers = append(transfers, &explorer.TransferTx{
			TxHash:      txHash,
			BlockHeight: explorer.Int64Ptr(blockHeight),
			Date:        date,
			Success:     true,
			FromAddress: sender,
			ToAddress:   recipient,
			Value:       units.FromUnit(rawValue, Precision),
			Symbol:      Symbol,
		})
	}
	return transfers
}

// tokenDelta is one side of an SPL balance diff.
type tokenDelta struct {
	index    int
	address  string
	mint     string
	amount   string
	decimals int32
}

// tokenBalanceMaps indexes pre/post token balances by account index.
func tokenBalanceMaps(meta *Meta) (pre, post map[int]TokenBalance) {
	pre = make(map[int]TokenBalance, len(meta.PreTokenBalances))
	for _, b := range meta.PreTokenBalances {
		pre[b.AccountIndex] = b
	}
	post = make(map[int]TokenBalance, len(meta.PostTokenBalances))
	for _, b := range meta.PostTokenBalances {
		post[b.AccountIndex] = b
	}
	return pre, post
}

func rawAmount(b TokenBalance, ok bool) string {
	if !ok || b.UITokenAmount.Amount == "" {
		return "0"
	}
	return b.UITokenAmount.Amount
}

// amountGreater reports a > b for integer strings, via exact decimal
// compare.
func amountGreater(a, b string) bool {
	da, errA := units.FromUnitString(a, 0)
	db, errB := units.FromUnitString(b, 0)
	if errA != nil || errB != nil {
		return false
	}
	return da.GreaterThan(db)
}

// parseTokenTransfers reconciles SPL token movements of one block
// transaction from pre/postTokenBalances. A transaction touching more
// than one mint is skipped entirely: pairing senders and recipients
// across mints would misread swaps as transfers. Only mints with a
// registered contract are emitted. Value converts at the contract's
// decimals, the fee at the native precision.
func parseTokenTransfers(tx *BlockTransaction, blockHeight int64, contracts map[string]explorer.ContractInfo) []*explorer.TransferTx {
	meta := tx.Meta
	if len(meta.PreTokenBalances) == 0 && len(meta.PostTokenBalances) == 0 {
		return nil
	}

	mints := make(map[string]bool)
	for _, b := range meta.PreTokenBalances {
		if b.Mint != "" {
			mints[b.Mint] = true
		}
	}
	for _, b := range meta.PostTokenBalances {
		if b.Mint != "" {
			mints[b.Mint] = true
		}
	}
	if len(mints) != 1 {
		return nil
	}

	pre, post := tokenBalanceMaps(meta)
	date := blockTimeToDate(tx.BlockTime)
	txHash := tx.Transaction.Signatures[0]
	fee := units.FromUnit(meta.Fee, Precision)

	var transfers []*explorer.TransferTx
	for _, postBalance := range meta.PostTokenBalances {
		mint := postBalance.Mint
		contract, registered := contracts[mint]
		if !registered {
			continue
		}

		postAmount := rawAmount(postBalance, true)
		preEntry, hasPre := pre[postBalance.AccountIndex]
		preAmount := rawAmount(preEntry, hasPre)
		if !amountGreater(postAmount, preAmount) {
			continue
		}
		delta, err := subtractAmounts(postAmount, preAmount)
		if err != nil {
			continue
		}
		recipient := postBalance.Owner

		// The sender is the first account of the same mint whose
		// balance shrank.
		var sender string
		for _, preBalance := range meta.PreTokenBalances {
			if preBalance.Mint != mint {
				continue
			}
			postEntry, hasPost := post[preBalance.AccountIndex]
			if amountGreater(rawAmount(preBalance, true), rawAmount(postEntry, hasPost)) {
				sender = preBalance.Owner
				break
			}
		}
		if sender == "" || sender == recipient {
			continue
		}

		value, err := units.FromUnitString(delta, contract.Decimals)
		if err != nil {
			continue
		}
		transfers = append(transfers, &explorer.TransferTx{
			TxHash:      txHash,
			BlockHeight: explorer.Int64Ptr(blockHeight),
			Date:        date,
			Success:     true,
			FromAddress: sender,
			ToAddress:   recipient,
			Value:       value,
			Symbol:      contract.Symbol,
			TxFee:       explorer.DecimalPtr(fee),
			Token:       explorer.StrPtr(mint),
		})
	}
	return transfers
}

// subtractAmounts computes a - b for integer strings, returned as an
// integer string.
func subtractAmounts(a, b string) (string, error) {
	da, err := units.FromUnitString(a, 0)
	if err != nil {
		return "", err
	}
	db, err := units.FromUnitString(b, 0)
	if err != nil {
		return "", err
	}
	return da.Sub(db).String(), nil
}

// parseBlocks flattens a batch of validated getBlock results into
// transfer legs, native and token movements both. Block height is the
// parent slot plus one, matching what the chain reports for the block
// itself.
func parseBlocks(blocks []*BlockResult, contracts map[string]explorer.ContractInfo) []*explorer.TransferTx {
	var transfers []*explorer.TransferTx
	for _, block := range blocks {
		if block == nil || len(block.Transactions) == 0 {
			continue
		}
		blockHeight := block.ParentSlot + 1
		for _, tx := range block.Transactions {
			if ValidateBlockTransaction(&tx) {
				transfers = append(transfers, parseNativeTransfers(&tx, blockHeight)...)
			}
			if ValidateTokenBlockTransaction(&tx) {
				transfers = append(transfers, parseTokenTransfers(&tx, blockHeight, contracts)...)
			}
		}
	}
	return transfers
}

// tokenSide is one aggregated sender or recipient of a mint within one
// transaction.
type tokenSide struct {
	address string
	amount  string
}

// parseTokenTxDetails reconciles the SPL movements of one validated
// getTransaction result: every shrinking account is a sender, every
// growing one a recipient, and each same-mint sender/recipient pair with
// distinct endpoints yields a leg valued at the recipient's gain.
func parseTokenTxDetails(result *TransactionResult, contracts map[string]explorer.ContractInfo) []*explorer.TransferTx {
	if !instructionsCarryTokenTransfer(result) {
		return nil
	}
	if !ValidateLogs(result.Meta.LogMessages) {
		return nil
	}
	if len(result.Meta.PreTokenBalances) == 0 || len(result.Meta.PostTokenBalances) == 0 {
		return nil
	}

	senders, recipients := tokenSidesByMint(result.Meta)
	date := blockTimeToDate(result.BlockTime)
	fee := units.FromUnit(result.Meta.Fee, Precision)
	txHash := result.Transaction.Signatures[0]

	var transfers []*explorer.TransferTx
	for mint, mintSenders := range senders {
		contract, registered := contracts[mint]
		if !registered {
			continue
		}
		for _, sender := range mintSenders {
			for _, recipient := range recipients[mint] {
				if sender.address == recipient.address {
					continue
				}
				value, err := units.FromUnitString(recipient.amount, contract.Decimals)
				if err != nil {
					continue
				}
				transfers = append(transfers, &explorer.TransferTx{
					TxHash:      txHash,
					BlockHeight: explorer.Int64Ptr(result.Slot),
					Date:        date,
					Success:     true,
					FromAddress: sender.address,
					ToAddress:   recipient.address,
					Value:       value,
					Symbol:      contract.Symbol,
					TxFee:       explorer.DecimalPtr(fee),
					Token:       explorer.StrPtr(mint),
				})
			}
		}
	}
	return transfers
}

// parseTokenTxs reconciles a batch of transactions down to the requested
// contract, at most one leg per transaction: the first sender paired with
// the first recipient. A transaction carrying several distinct movements
// of the same mint is therefore under-reported; downstream reconciliation
// already assumes this shape.
func parseTokenTxs(results []*TransactionResult, contract explorer.ContractInfo) []*explorer.TransferTx {
	var transfers []*explorer.TransferTx
	seen := make(map[string]bool)

	for _, result := range results {
		if !ValidateTokenTransaction(result) {
			continue
		}
		if !instructionsCarryTokenTransfer(result) {
			continue
		}
		if !ValidateLogs(result.Meta.LogMessages) {
			continue
		}

		txHash := result.Transaction.Signatures[0]
		if seen[txHash] {
			continue
		}

		if len(result.Meta.PreTokenBalances) == 0 || len(result.Meta.PostTokenBalances) == 0 {
			continue
		}

		senders, recipients := tokenSidesByMint(result.Meta)
		mintSenders := senders[contract.Address]
		mintRecipients := recipients[contract.Address]
		if len(mintSenders) > 0 && len(mintRecipients) > 0 {
			sender := mintSenders[0]
			recipient := mintRecipients[0]
			if !strings.EqualFold(sender.address, recipient.address) {
				if value, err := units.FromUnitString(recipient.amount, contract.Decimals); err == nil {
					transfers = append(transfers, &explorer.TransferTx{
						TxHash:      txHash,
						BlockHeight: explorer.Int64Ptr(result.Slot),
						Date:        blockTimeToDate(result.BlockTime),
						Success:     true,
						FromAddress: sender.address,
						ToAddress:   recipient.address,
						Value:       value,
						Symbol:      contract.Symbol,
						TxFee:       explorer.DecimalPtr(units.FromUnit(result.Meta.Fee, Precision)),
						Token:       explorer.StrPtr(contract.Address),
					})
				}
			}
		}
		seen[txHash] = true
	}
	return transfers
}

// instructionsCarryTokenTransfer reports whether at least one instruction
// is a trusted spl-token transfer.
func instructionsCarryTokenTransfer(result *TransactionResult) bool {
	for _, ix := range result.Transaction.Message.Instructions {
		if ValidateInstruction(ix) {
			return true
		}
	}
	return false
}

// tokenSidesByMint aggregates the balance diffs of one transaction into
// per-mint sender and recipient lists, in account order.
func tokenSidesByMint(meta *Meta) (senders, recipients map[string][]tokenSide) {
	pre, post := tokenBalanceMaps(meta)
	senders = make(map[string][]tokenSide)
	recipients = make(map[string][]tokenSide)

	for _, preBalance := range meta.PreTokenBalances {
		postEntry, hasPost := post[preBalance.AccountIndex]
		preAmount := rawAmount(preBalance, true)
		postAmount := rawAmount(postEntry, hasPost)
		if amountGreater(preAmount, postAmount) {
			delta, err := subtractAmounts(preAmount, postAmount)
			if err != nil {
				continue
			}
			senders[preBalance.Mint] = append(senders[preBalance.Mint], tokenSide{
				address: preBalance.Owner,
				amount:  delta,
			})
		}
	}

	for _, postBalance := range meta.PostTokenBalances {
		preEntry, hasPre := pre[postBalance.AccountIndex]
		postAmount := rawAmount(postBalance, true)
		preAmount := rawAmount(preEntry, hasPre)
		if amountGreater(postAmount, preAmount) {
			delta, err := subtractAmounts(postAmount, preAmount)
			if err != nil {
				continue
			}
			recipients[postBalance.Mint] = append(recipients[postBalance.Mint], tokenSide{
				address: postBalance.Owner,
				amount:  delta,
			})
		}
	}
	return senders, recipients
}
